package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-cli/internal/logger"
	"github.com/i474232898/weather-cli/internal/weather"
)

// maxBodyBytes caps how much of a provider reply we read.
const maxBodyBytes = 8 << 20

// BackoffConfig controls exponential backoff behaviour. MaxRetries defaults to 0:
// adapters issue exactly one request unless the caller opts into retries.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client    *http.Client
	UserAgent string
	Backoff   BackoffConfig
	Logger    logger.Logger
}

func (c HTTPClientConfig) logger() logger.Logger {
	if c.Logger == nil {
		return logger.NewNop()
	}
	return c.Logger
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// statusFailure carries a non-2xx answer out of the circuit breaker.
type statusFailure struct {
	status int
	body   []byte
}

func (s *statusFailure) Error() string {
	return fmt.Sprintf("status %d", s.status)
}

func newCircuitBreaker(name string, log logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// A 4xx other than 429 says the request was bad, not that the provider is down.
		IsSuccessful: func(err error) bool {
			var sf *statusFailure
			if errors.As(err, &sf) {
				return sf.status >= 400 && sf.status < 500 && sf.status != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// doRequest executes the request through the circuit breaker and returns the body
// of a 2xx reply. Failures are *weather.TransportError values. Retries only happen
// when cfg.Backoff.MaxRetries > 0, and only for network errors, 429 and 5xx.
func doRequest(
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, weather.NetworkError(provider, errNoHTTPClient)
	}
	if cfg.Backoff.MaxRetries < 0 || (cfg.Backoff.MaxRetries > 0 && cfg.Backoff.InitialInterval <= 0) {
		return nil, weather.NetworkError(provider, errInvalidConfig)
	}

	log := cfg.logger().WithField("provider", provider)
	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, weather.NetworkError(provider, ctx.Err())
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, weather.NetworkError(provider, err)
		}
		if cfg.UserAgent != "" {
			req.Header.Set("User-Agent", cfg.UserAgent)
		}
		req.Header.Set("Accept", "application/json")

		log.Debugf("GET %s", req.URL.Redacted())

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, &statusFailure{status: resp.StatusCode, body: body}
			}
			if readErr != nil {
				return nil, readErr
			}
			return body, nil
		})

		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, weather.NetworkError(provider, fmt.Errorf("unexpected result type from circuit breaker"))
			}
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, weather.NetworkError(provider, fmt.Errorf("%w: %v", errCircuitOpen, err))
		}

		var sf *statusFailure
		isStatus := errors.As(err, &sf)
		retryable := !isStatus || sf.status == http.StatusTooManyRequests || sf.status >= 500

		if !retryable || attempt >= cfg.Backoff.MaxRetries {
			if isStatus {
				return nil, weather.StatusError(provider, sf.status, errorReason(sf.body))
			}
			return nil, weather.NetworkError(provider, err)
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}
		log.Infof("attempt %d failed (%v), retrying in %s", attempt+1, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, weather.NetworkError(provider, ctx.Err())
		case <-timer.C:
		}

		attempt++
	}
}

// errorReason pulls a human readable reason out of an error body.
func errorReason(body []byte) string {
	var payload struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Reason != "":
			return payload.Reason
		case payload.Message != "":
			return payload.Message
		}
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// decodeStrict unmarshals a payload, mapping syntax and type errors to MalformedPayload.
func decodeStrict(provider string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return weather.Malformed(provider, "decode: %v", err)
	}
	return nil
}
