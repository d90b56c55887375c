package weather

import "time"

// classify derives the data kind of a request. It must run per request because
// the same spec changes kind as the wall clock moves.
func classify(spec TimeSpec, now time.Time) DataKind {
	t, ok := spec.Instant()
	if !ok {
		return KindCurrent
	}
	if t.Before(now) {
		return KindHistorical
	}
	return KindForecast
}

// validate checks a classified request against a provider's capabilities.
func validate(provider string, kind DataKind, spec TimeSpec, desc CapabilityDescriptor, now time.Time) error {
	requested, _ := spec.Instant()

	if !desc.Has(kind) {
		return &CapabilityError{Provider: provider, Kind: kind, Requested: requested, Err: ErrUnsupported}
	}

	switch kind {
	case KindForecast:
		limit := now.Add(desc.MaxForecastHorizon)
		if requested.After(limit) {
			return &CapabilityError{Provider: provider, Kind: kind, Requested: requested, Limit: limit, Err: ErrDateOutOfRange}
		}
	case KindHistorical:
		if !desc.HistoricalAllowed {
			return &CapabilityError{Provider: provider, Kind: kind, Requested: requested, Err: ErrDateOutOfRange}
		}
		if !desc.HistoricalSince.IsZero() && requested.Before(desc.HistoricalSince) {
			return &CapabilityError{Provider: provider, Kind: kind, Requested: requested, Limit: desc.HistoricalSince, Err: ErrDateOutOfRange}
		}
	}

	return nil
}
