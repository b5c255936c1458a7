// Package profiler - Timing and counters for the posture sampling loops.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options configures a profiler.
type Options struct {
	// ReportInterval is how often a summary is logged; zero disables reporting.
	ReportInterval time.Duration
	// MaxSamples bounds the durations kept per operation (default: 600).
	MaxSamples int
}

// OperationStats summarizes the recorded durations of one operation.
type OperationStats struct {
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Snapshot is a point-in-time copy of the profiler state.
type Snapshot struct {
	Uptime     time.Duration             `json:"uptime"`
	Goroutines int                       `json:"goroutines"`
	Counters   map[string]int64          `json:"counters"`
	Operations map[string]OperationStats `json:"operations"`
}

type timeTracker struct {
	durations []time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

// Profiler tracks operation timings and event counters and logs periodic summaries.
//
// All methods are safe for concurrent use. A nil *Profiler is valid and records nothing.
type Profiler struct {
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	startTime  time.Time
	counters   map[string]int64
	operations map[string]*timeTracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a profiler.
//
// Arguments:
//   - opts: Reporting options.
//   - log: Destination for periodic summaries, nil for none.
//
// Returns:
//   - *Profiler: The profiler; call Start to enable periodic reports.
func New(opts Options, log *zap.Logger) *Profiler {
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Profiler{
		opts:       opts,
		log:        log,
		startTime:  time.Now(),
		counters:   make(map[string]int64),
		operations: make(map[string]*timeTracker),
	}
}

// Start begins periodic reporting. It is a no-op when already started or
// when ReportInterval is zero.
func (p *Profiler) Start() {
	if p == nil || p.opts.ReportInterval <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.opts.ReportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.report()
			}
		}
	}()
}

// Stop ends periodic reporting and waits for the reporter to exit.
func (p *Profiler) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.wg.Wait()
	}
}

// Count increments a named counter.
func (p *Profiler) Count(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.counters[name]++
	p.mu.Unlock()
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): Call when the operation completes.
//
// @example
// done := p.StartOperation("tick")
// defer done()
func (p *Profiler) StartOperation(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.record(name, time.Since(start))
	}
}

func (p *Profiler) record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operations[name]
	if !ok {
		t = &timeTracker{min: d, max: d}
		p.operations[name] = t
	}

	t.durations = append(t.durations, d)
	t.total += d
	if len(t.durations) > p.opts.MaxSamples {
		t.total -= t.durations[0]
		t.durations = t.durations[1:]
	}
	t.count++
	if d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
}

// Snapshot returns the current counters and timing summaries.
func (p *Profiler) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Uptime:     time.Since(p.startTime),
		Goroutines: runtime.NumGoroutine(),
		Counters:   make(map[string]int64, len(p.counters)),
		Operations: make(map[string]OperationStats, len(p.operations)),
	}
	for name, v := range p.counters {
		snap.Counters[name] = v
	}
	for name, t := range p.operations {
		stats := OperationStats{Count: t.count, Min: t.min, Max: t.max}
		if len(t.durations) > 0 {
			stats.Avg = t.total / time.Duration(len(t.durations))
		}
		snap.Operations[name] = stats
	}
	return snap
}

func (p *Profiler) report() {
	snap := p.Snapshot()

	fields := []zap.Field{
		zap.Duration("uptime", snap.Uptime.Truncate(time.Millisecond)),
		zap.Int("goroutines", snap.Goroutines),
	}

	names := make([]string, 0, len(snap.Counters))
	for name := range snap.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fields = append(fields, zap.Int64(name, snap.Counters[name]))
	}

	names = names[:0]
	for name := range snap.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		op := snap.Operations[name]
		fields = append(fields, zap.Dict(name,
			zap.Duration("avg", op.Avg.Truncate(time.Microsecond)),
			zap.Duration("max", op.Max.Truncate(time.Microsecond)),
			zap.Int64("count", op.Count),
		))
	}

	p.log.Info("profiler report", fields...)
}
