package weather

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownProvider is returned when a provider name does not resolve to an adapter.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnsupported means the provider cannot serve the requested data kind at all.
	ErrUnsupported = errors.New("unsupported data kind")
	// ErrDateOutOfRange means the provider serves the kind, but not for the requested date.
	ErrDateOutOfRange = errors.New("date out of range")

	// ErrNetwork covers connectivity failures, timeouts and an open circuit breaker.
	ErrNetwork = errors.New("network failure")
	// ErrHTTPStatus is a non-2xx answer from the provider.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrMissingField means a mandatory field (timestamp, temperature) is absent.
	ErrMissingField = errors.New("missing field")
	// ErrMalformedPayload means the payload does not match the expected schema.
	ErrMalformedPayload = errors.New("malformed payload")
)

// UnknownProviderError is returned before any adapter is touched.
type UnknownProviderError struct {
	Name      string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no such provider %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownProviderError) Unwrap() error { return ErrUnknownProvider }

// CapabilityError is a request/provider mismatch detected before any network call.
type CapabilityError struct {
	Provider string
	Kind     DataKind
	// Requested is the instant asked for; zero for Now.
	Requested time.Time
	// Limit is the boundary that was crossed (horizon end or earliest historical date), if any.
	Limit time.Time
	Err   error
}

func (e *CapabilityError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnsupported):
		return fmt.Sprintf("provider %s cannot serve %s data", e.Provider, e.Kind)
	case !e.Limit.IsZero() && e.Kind == KindForecast:
		return fmt.Sprintf("provider %s cannot serve a forecast for %s: forecasts end at %s",
			e.Provider, e.Requested.Format(time.DateOnly), e.Limit.Format(time.DateOnly))
	case !e.Limit.IsZero():
		return fmt.Sprintf("provider %s cannot serve %s data for %s: records start at %s",
			e.Provider, e.Kind, e.Requested.Format(time.DateOnly), e.Limit.Format(time.DateOnly))
	default:
		return fmt.Sprintf("provider %s cannot serve %s data for %s",
			e.Provider, e.Kind, e.Requested.Format(time.DateOnly))
	}
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// TransportError is a failed request to the provider.
type TransportError struct {
	Provider string
	// StatusCode is set for ErrHTTPStatus failures.
	StatusCode int
	// Detail is provider supplied context, e.g. the reason from an error body.
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		msg := fmt.Sprintf("request to %s failed with status %d", e.Provider, e.StatusCode)
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		return msg
	}
	return fmt.Sprintf("request to %s failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NetworkError wraps a connectivity failure.
func NetworkError(provider string, err error) *TransportError {
	return &TransportError{Provider: provider, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
}

// StatusError builds a TransportError for a non-2xx response.
func StatusError(provider string, status int, detail string) *TransportError {
	return &TransportError{Provider: provider, StatusCode: status, Detail: detail, Err: ErrHTTPStatus}
}

// NormalizationError means the provider returned something we cannot map.
type NormalizationError struct {
	Provider string
	// Field names the missing mandatory field for ErrMissingField.
	Field  string
	Detail string
	Err    error
}

func (e *NormalizationError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("%s returned unexpected data: missing field %q", e.Provider, e.Field)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s returned unexpected data: %s", e.Provider, e.Detail)
	}
	return fmt.Sprintf("%s returned unexpected data", e.Provider)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// MissingField builds a NormalizationError for an absent mandatory field.
func MissingField(provider, field string) *NormalizationError {
	return &NormalizationError{Provider: provider, Field: field, Err: ErrMissingField}
}

// Malformed builds a NormalizationError for a payload that does not fit the schema.
func Malformed(provider string, format string, args ...interface{}) *NormalizationError {
	return &NormalizationError{Provider: provider, Detail: fmt.Sprintf(format, args...), Err: ErrMalformedPayload}
}
