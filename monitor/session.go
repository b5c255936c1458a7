// Package monitor - The recurring compare-and-report monitoring session.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/analysis"
	"github.com/nvr-ai/go-posture/display"
	"github.com/nvr-ai/go-posture/estimator"
	"github.com/nvr-ai/go-posture/pose"
	"github.com/nvr-ai/go-posture/profiler"
	"github.com/nvr-ai/go-posture/training"
)

// Profiler counter and operation names.
const (
	MetricTick            = "monitor.tick"
	MetricEmissions       = "monitor.emissions"
	MetricAcquireFailures = "monitor.acquire_failures"
)

// Config controls the sampling cadence.
type Config struct {
	// Interval is the sampling period.
	Interval time.Duration `json:"interval" yaml:"interval" validate:"gt=0"`
	// AcquireTimeout bounds each estimation; a timeout counts as no frame.
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout" validate:"gte=0"`
}

// DefaultConfig samples every 500ms with a 2s estimation deadline.
func DefaultConfig() Config {
	return Config{
		Interval:       500 * time.Millisecond,
		AcquireTimeout: 2 * time.Second,
	}
}

// FrameObserver receives every frame the session acquires.
type FrameObserver interface {
	Observe(frame pose.Frame)
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithProfiler records tick timings and counters.
func WithProfiler(p *profiler.Profiler) Option {
	return func(s *Session) { s.prof = p }
}

// WithAnalysis overrides the comparison tolerances.
func WithAnalysis(cfg analysis.Config) Option {
	return func(s *Session) { s.analysis = cfg }
}

// WithObserver adds a frame observer, e.g. a keypoint overlay.
func WithObserver(o FrameObserver) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// run is the state of one Running period. It is discarded on Stop.
type run struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}

	mu           sync.Mutex
	lastFeedback string
}

// Session periodically compares live frames against the reference pose and
// emits feedback when it changes.
//
// Ticks run one at a time on the session goroutine: a tick acquires a frame,
// compares it and emits before the next tick is considered. A tick that
// overruns the interval delays the next one instead of overlapping it.
type Session struct {
	config    Config
	analysis  analysis.Config
	guard     *estimator.Guard
	store     *training.Store
	sink      display.Sink
	observers []FrameObserver
	prof      *profiler.Profiler
	log       *zap.Logger

	// ctl serializes Start, Stop and Toggle.
	ctl sync.Mutex
	mu  sync.Mutex
	run *run
}

// New creates a stopped session.
//
// Arguments:
//   - config: Sampling cadence.
//   - est: The pose estimator; failures are absorbed per tick.
//   - store: The reference pose store, read on every tick.
//   - sink: Receives feedback text when it changes.
//   - opts: Optional logger, profiler, tolerances and observers.
//
// Returns:
//   - *Session: The session in the Stopped state.
//
// @example
// session := monitor.New(monitor.DefaultConfig(), est, store, sink, monitor.WithLogger(log))
// session.Start()
// defer session.Stop()
func New(config Config, est estimator.Estimator, store *training.Store, sink display.Sink, opts ...Option) *Session {
	s := &Session{
		config:   config,
		analysis: analysis.DefaultConfig(),
		store:    store,
		sink:     sink,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = display.Discard
	}
	s.guard = estimator.NewGuard(est, config.AcquireTimeout, s.log)
	return s
}

// Start moves the session to Running. Starting a running session is a no-op.
//
// Returns:
//   - bool: True if this call started the session.
func (s *Session) Start() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.startLocked()
}

func (s *Session) startLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.run = r

	go s.loop(ctx, r)

	s.log.Info("monitoring started", zap.Stringer("session", r.id), zap.Duration("interval", s.config.Interval))
	return true
}

// Stop moves the session to Stopped and waits for the session goroutine to
// exit, so no tick runs and nothing is emitted after Stop returns. Stopping a
// stopped session is a no-op. Stop must not be called from the sink.
//
// Returns:
//   - bool: True if this call stopped the session.
func (s *Session) Stop() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() bool {
	s.mu.Lock()
	r := s.run
	s.run = nil
	s.mu.Unlock()

	if r == nil {
		return false
	}

	r.cancel()
	<-r.done

	s.log.Info("monitoring stopped", zap.Stringer("session", r.id))
	return true
}

// Toggle starts a stopped session or stops a running one. Concurrent toggles
// alternate the state; each reports the state it left.
//
// Returns:
//   - bool: True if the session is running after the call.
func (s *Session) Toggle() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.stopLocked() {
		return false
	}
	return s.startLocked()
}

// Running reports whether the session is in the Running state.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// LastFeedback returns the last emitted feedback of the current run, empty when stopped.
func (s *Session) LastFeedback() string {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()

	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFeedback
}

func (s *Session) loop(ctx context.Context, r *run) {
	defer close(r.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, r)
		}
	}
}

// tick performs one acquire, compare and emit cycle.
func (s *Session) tick(ctx context.Context, r *run) {
	done := s.prof.StartOperation(MetricTick)
	defer done()

	frame, ok := s.guard.Acquire(ctx)
	if ctx.Err() != nil {
		return
	}
	if !ok {
		s.prof.Count(MetricAcquireFailures)
	}

	for _, o := range s.observers {
		o.Observe(frame)
	}

	feedback := s.analysis.Compare(s.store.Load(), frame)

	r.mu.Lock()
	changed := feedback != r.lastFeedback
	if changed {
		r.lastFeedback = feedback
	}
	r.mu.Unlock()

	if !changed {
		return
	}

	s.prof.Count(MetricEmissions)
	s.log.Debug("feedback changed", zap.Stringer("session", r.id), zap.String("feedback", feedback))
	s.sink.Show(feedback)
}
