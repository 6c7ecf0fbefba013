package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/temperature-monitor/internal/observability"
	"github.com/i474232898/temperature-monitor/internal/weather"
)

// Mode selects how ticks are triggered.
type Mode string

const (
	// ModeCron fires at calendar-aligned instants of a cron expression.
	ModeCron Mode = "cron"
	// ModeFixedDelay fires a constant delay after the previous cycle finished.
	ModeFixedDelay Mode = "fixed-delay"
)

var (
	ErrUnknownMode     = errors.New("unknown schedule mode")
	ErrInvalidDelay    = errors.New("fixed delay must be positive")
	ErrAlreadyStarted  = errors.New("scheduler already started")
	errEmptyExpression = errors.New("empty cron expression")
)

// Config describes the cadence.
type Config struct {
	Mode       Mode
	Cron       string
	FixedDelay time.Duration
	RunOnStart bool
}

// CycleRunner runs one aggregation cycle over locations.
type CycleRunner interface {
	RunCycle(ctx context.Context, locations []weather.Location) weather.CycleResult
}

// Scheduler periodically runs aggregation cycles for the configured locations.
// Ticks never overlap: a tick that fires while a cycle is running is dropped.
type Scheduler struct {
	runner    CycleRunner
	locations []weather.Location
	cfg       Config

	clock   clockwork.Clock
	logger  logrus.FieldLogger
	metrics *observability.Metrics

	cron *gocron.Scheduler
	busy atomic.Bool

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving fixed-delay waits.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a new Scheduler. The configuration is validated here so a bad
// schedule fails at startup.
func New(cfg Config, locations []weather.Location, runner CycleRunner, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		runner:    runner,
		locations: locations,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch cfg.Mode {
	case ModeCron:
		if strings.TrimSpace(cfg.Cron) == "" {
			return nil, errEmptyExpression
		}
		s.cron = gocron.NewScheduler(time.UTC)
		s.cron.SingletonModeAll()

		var job *gocron.Job
		var err error
		if len(strings.Fields(cfg.Cron)) == 6 {
			job, err = s.cron.CronWithSeconds(cfg.Cron).Do(s.tick)
		} else {
			job, err = s.cron.Cron(cfg.Cron).Do(s.tick)
		}
		if err != nil {
			return nil, fmt.Errorf("schedule cron %q: %w", cfg.Cron, err)
		}
		job.Tag("aggregation")
	case ModeFixedDelay:
		if cfg.FixedDelay <= 0 {
			return nil, ErrInvalidDelay
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}

	return s, nil
}

// Start begins firing ticks. Cycles run with a context derived from ctx that
// is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	log := s.logger.WithField("mode", s.cfg.Mode)
	if len(s.locations) == 0 {
		log.Warn("no locations configured; nothing to schedule")
		return nil
	}

	switch s.cfg.Mode {
	case ModeCron:
		if s.cfg.RunOnStart {
			go s.tick()
		}
		s.cron.StartAsync()
		log.WithField("cron", s.cfg.Cron).Info("scheduler started")
	case ModeFixedDelay:
		s.wg.Add(1)
		go s.loop(s.ctx)
		log.WithField("delay", s.cfg.FixedDelay.String()).Info("scheduler started")
	}
	return nil
}

// loop runs fixed-delay ticks. The delay is measured from the end of one cycle
// to the start of the next.
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.cfg.RunOnStart {
		s.tick()
	}
	for {
		timer := s.clock.NewTimer(s.cfg.FixedDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		s.tick()
	}
}

// tick runs one cycle unless another one is still in flight.
func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous cycle still running; tick skipped")
		if s.metrics != nil {
			s.metrics.CyclesOverlap.Inc()
		}
		return
	}
	defer s.busy.Store(false)

	s.logger.Debug("running aggregation job")
	s.runner.RunCycle(ctx, s.locations)
}

// Stop cancels future ticks and waits for a running cycle to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Running reports whether a cycle is in flight.
func (s *Scheduler) Running() bool {
	return s.busy.Load()
}
