package weather

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-cli/internal/logger"
)

// Service resolves provider names to adapters and runs the
// classify -> validate -> fetch -> normalize pipeline.
type Service struct {
	providers map[string]Provider
	names     []string
	now       func() time.Time
	log       logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for classification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a new Service. Providers are registered under their canonical names.
func NewService(providers []Provider, opts ...Option) *Service {
	s := &Service{
		providers: make(map[string]Provider, len(providers)),
		now:       time.Now,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, p := range providers {
		name := CanonicalName(p.Name())
		if _, dup := s.providers[name]; dup {
			s.log.Warnf("provider %s registered twice; keeping the first", name)
			continue
		}
		s.providers[name] = p
		s.names = append(s.names, name)
	}

	return s
}

// CanonicalName folds case and the legacy underscore spelling ("open_meteo").
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

// Providers lists registered provider names in registration order.
func (s *Service) Providers() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Describe returns the capability profile of a registered provider.
func (s *Service) Describe(name string) (CapabilityDescriptor, error) {
	p, err := s.resolve(name)
	if err != nil {
		return CapabilityDescriptor{}, err
	}
	return p.Capabilities(), nil
}

func (s *Service) resolve(name string) (Provider, error) {
	p, ok := s.providers[CanonicalName(name)]
	if !ok {
		return nil, &UnknownProviderError{Name: name, Available: s.Providers()}
	}
	return p, nil
}

// GetWeather fetches and normalizes weather for loc from the named provider.
// The result is all-or-nothing: either a complete report or one of
// *UnknownProviderError, *CapabilityError, *TransportError, *NormalizationError.
func (s *Service) GetWeather(ctx context.Context, providerName string, loc Location, spec TimeSpec) (WeatherReport, error) {
	p, err := s.resolve(providerName)
	if err != nil {
		return WeatherReport{}, err
	}
	name := CanonicalName(p.Name())

	desc := p.Capabilities()
	now := s.now()
	kind := classify(spec, now)

	log := s.log.WithFields(map[string]interface{}{
		"request_id": uuid.NewString(),
		"provider":   name,
		"kind":       string(kind),
		"location":   loc.Key(),
		"time":       spec.String(),
	})

	if err := validate(name, kind, spec, desc, now); err != nil {
		log.Infof("rejected before fetch: %v", err)
		return WeatherReport{}, err
	}

	log.Debug("fetching")
	raw, err := p.Fetch(ctx, loc.Coordinates, spec, kind)
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			te = NetworkError(name, err)
		}
		log.Warnf("fetch failed: %v", te)
		return WeatherReport{}, te
	}

	report, err := p.Normalize(raw, kind)
	if err != nil {
		var ne *NormalizationError
		if !errors.As(err, &ne) {
			ne = Malformed(name, "%v", err)
		}
		log.WithField("field", ne.Field).Errorf("normalize failed: %v", ne)
		return WeatherReport{}, ne
	}

	report.Provider = name
	report.Kind = kind
	report.Coordinates = loc.Coordinates
	report.LocationLabel = loc.Label
	if report.LocationLabel == "" {
		report.LocationLabel = loc.Coordinates.String()
	}

	if err := finalize(name, &report); err != nil {
		log.Errorf("normalized report rejected: %v", err)
		return WeatherReport{}, err
	}

	log.Debugf("normalized %d points", len(report.Points))
	return report, nil
}

// finalize sorts points and enforces the report invariants.
func finalize(provider string, r *WeatherReport) error {
	if len(r.Points) == 0 {
		return Malformed(provider, "no data points")
	}
	if r.Kind == KindCurrent && len(r.Points) != 1 {
		return Malformed(provider, "current report has %d points, want 1", len(r.Points))
	}

	sort.SliceStable(r.Points, func(i, j int) bool {
		return r.Points[i].Timestamp.Before(r.Points[j].Timestamp)
	})
	return nil
}
