package weather

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/temperature-monitor/internal/observability"
)

const (
	defaultWorkers         = 4
	defaultLocationTimeout = 30 * time.Second
)

// Service orchestrates fetching from every provider, persisting the rounded
// average for each location, and answering read queries over the store.
type Service struct {
	store     Store
	providers []Provider
	publisher SamplePublisher

	clock   clockwork.Clock
	logger  logrus.FieldLogger
	metrics *observability.Metrics

	workers         int
	locationTimeout time.Duration
	reportZone      *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for sample timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher registers a publisher notified of every persisted sample.
func WithPublisher(p SamplePublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithWorkers bounds how many locations are aggregated at once.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLocationTimeout bounds one location's aggregation. Zero disables the bound.
func WithLocationTimeout(d time.Duration) Option {
	return func(s *Service) { s.locationTimeout = d }
}

// WithReportZone sets the zone for day boundaries and report timestamps.
func WithReportZone(zone *time.Location) Option {
	return func(s *Service) {
		if zone != nil {
			s.reportZone = zone
		}
	}
}

// NewService creates a new Service.
func NewService(store Store, providers []Provider, opts ...Option) *Service {
	s := &Service{
		store:           store,
		providers:       providers,
		clock:           clockwork.NewRealClock(),
		logger:          logrus.StandardLogger(),
		workers:         defaultWorkers,
		locationTimeout: defaultLocationTimeout,
		reportZone:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	}
	return s
}

// fetchOutcome is the result of one provider call, kept until every call for the location has returned.
type fetchOutcome struct {
	reading Reading
	err     error
}

// RunCycle aggregates every location once. Locations are processed by a bounded
// pool; a failure on one location never stops the others.
func (s *Service) RunCycle(ctx context.Context, locations []Location) CycleResult {
	log := s.logger.WithField("cycle_id", uuid.NewString())
	log.WithField("locations", len(locations)).Info("aggregation cycle started")
	start := s.clock.Now()

	var written, skipped, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, loc := range locations {
		g.Go(func() error {
			lctx := ctx
			if s.locationTimeout > 0 {
				var cancel context.CancelFunc
				lctx, cancel = context.WithTimeout(ctx, s.locationTimeout)
				defer cancel()
			}

			_, ok, err := s.fetchAndStore(lctx, loc, log)
			switch {
			case err != nil:
				failed.Add(1)
				log.WithFields(logrus.Fields{"city": loc.City, "error": err}).Error("aggregation failed")
			case !ok:
				skipped.Add(1)
			default:
				written.Add(1)
			}
			// Errors are isolated per location.
			return nil
		})
	}
	_ = g.Wait()

	result := CycleResult{
		Written: int(written.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
	s.metrics.CycleDuration.Observe(s.clock.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"written": result.Written,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("aggregation cycle finished")

	return result
}

// FetchAndStore queries every provider for loc, averages the successful readings
// and persists one sample. It reports false without error when every provider
// failed; store failures are returned.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) (Sample, bool, error) {
	return s.fetchAndStore(ctx, loc, s.logger)
}

func (s *Service) fetchAndStore(ctx context.Context, loc Location, logger logrus.FieldLogger) (Sample, bool, error) {
	log := logger.WithFields(logrus.Fields{"city": loc.City, "country": loc.Country})

	if len(s.providers) == 0 {
		log.Error("no providers available to fetch temperature")
		return Sample{}, false, ErrNoProviders
	}
	log.WithField("providers", len(s.providers)).Debug("aggregation started")

	readings := s.collectReadings(ctx, loc, log)

	avg, ok := AverageReadings(readings)
	if !ok {
		log.WithField("sources", len(s.providers)).Warn("no source returned a temperature; sample will not be saved")
		s.metrics.AggregationsSkipped.Inc()
		return Sample{}, false, nil
	}
	log.WithFields(logrus.Fields{
		"temperature": avg.StringFixed(TemperaturePlaces),
		"successful":  len(readings),
		"sources":     len(s.providers),
	}).Info("average temperature computed")

	sample, err := s.store.SaveSample(ctx, Sample{
		City:        loc.City,
		Country:     loc.Country,
		Temperature: avg,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		s.metrics.StoreErrors.Inc()
		return Sample{}, false, fmt.Errorf("save sample for %s: %w", loc.Key(), err)
	}
	s.metrics.SamplesWritten.Inc()
	s.metrics.LastTemperature.WithLabelValues(loc.City).Set(avg.InexactFloat64())
	log.WithField("id", sample.ID).Debug("sample saved")

	if s.publisher != nil {
		if err := s.publisher.PublishSample(ctx, sample); err != nil {
			s.metrics.PublishErrors.Inc()
			log.WithField("error", err).Warn("publish sample failed")
		}
	}

	return sample, true, nil
}

// collectReadings calls every provider concurrently and waits for all of them
// before returning the successes in provider order.
func (s *Service) collectReadings(ctx context.Context, loc Location, log logrus.FieldLogger) []Reading {
	outcomes := make([]fetchOutcome, len(s.providers))

	var g errgroup.Group
	for i, p := range s.providers {
		g.Go(func() error {
			start := s.clock.Now()
			r, err := p.Fetch(ctx, loc)
			s.metrics.ProviderDuration.WithLabelValues(string(p.Name())).Observe(s.clock.Since(start).Seconds())
			outcomes[i] = fetchOutcome{reading: r, err: err}
			return nil
		})
	}
	_ = g.Wait()

	readings := make([]Reading, 0, len(outcomes))
	for i, o := range outcomes {
		name := string(s.providers[i].Name())
		if o.err != nil {
			s.metrics.ProviderRequests.WithLabelValues(name, failureKind(o.err)).Inc()
			log.WithFields(logrus.Fields{"source": name, "error": o.err}).Error("provider fetch failed")
			continue
		}
		s.metrics.ProviderRequests.WithLabelValues(name, "success").Inc()
		log.WithFields(logrus.Fields{"source": name, "temperature": o.reading.TemperatureC}).Debug("provider returned temperature")
		readings = append(readings, o.reading)
	}
	return readings
}
