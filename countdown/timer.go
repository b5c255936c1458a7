// Package countdown - A once-per-tick MM:SS countdown shown on a display sink.
package countdown

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/display"
)

// CompleteMessage is shown when a countdown reaches zero.
const CompleteMessage = "Training complete!"

// Config controls the countdown cadence and final text.
type Config struct {
	// Tick is the period of one countdown step.
	Tick time.Duration `json:"tick" yaml:"tick" validate:"gt=0"`
	// CompleteMessage replaces the clock when the countdown ends.
	CompleteMessage string `json:"complete_message" yaml:"complete_message" validate:"required"`
}

// DefaultConfig counts down once per second.
func DefaultConfig() Config {
	return Config{
		Tick:            time.Second,
		CompleteMessage: CompleteMessage,
	}
}

// Format renders seconds as a zero-padded MM:SS clock. Negative values render as 00:00.
//
// Arguments:
//   - seconds: The remaining seconds.
//
// Returns:
//   - string: The clock text.
//
// @example
// countdown.Format(65) // "01:05"
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

type countdown struct {
	id        uuid.UUID
	cancel    context.CancelFunc
	done      chan struct{}
	remaining atomic.Int64
	completed atomic.Bool
}

// Timer runs at most one countdown at a time.
type Timer struct {
	config Config
	sink   display.Sink
	log    *zap.Logger

	// ctl serializes Start and Stop so a replaced countdown has fully exited
	// before its successor shows anything.
	ctl sync.Mutex
	mu  sync.Mutex
	cur *countdown
}

// New creates an idle timer.
//
// Arguments:
//   - config: The tick period and complete message.
//   - sink: Receives the clock text and the complete message.
//   - log: Logger, nil for none.
//
// Returns:
//   - *Timer: The timer.
func New(config Config, sink display.Sink, log *zap.Logger) *Timer {
	if config.CompleteMessage == "" {
		config.CompleteMessage = CompleteMessage
	}
	if sink == nil {
		sink = display.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Timer{config: config, sink: sink, log: log}
}

// Start shows the initial clock and begins counting down, replacing any
// running countdown. A duration of zero or less completes immediately.
//
// Arguments:
//   - seconds: The countdown duration.
//
// @example
// timer := countdown.New(countdown.DefaultConfig(), sink, log)
// timer.Start(300)
func (t *Timer) Start(seconds int) {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	t.stopLocked()

	if seconds <= 0 {
		t.sink.Show(t.config.CompleteMessage)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &countdown{
		id:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.remaining.Store(int64(seconds))

	t.mu.Lock()
	t.cur = c
	t.mu.Unlock()

	t.sink.Show(Format(seconds))
	go t.loop(ctx, c)

	t.log.Info("countdown started", zap.Stringer("countdown", c.id), zap.Int("seconds", seconds))
}

// Stop cancels the running countdown without showing the complete message.
// No tick fires after Stop returns. Stopping an idle timer is a no-op.
//
// Returns:
//   - bool: True if a running countdown was cancelled.
func (t *Timer) Stop() bool {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	return t.stopLocked()
}

func (t *Timer) stopLocked() bool {
	t.mu.Lock()
	c := t.cur
	t.cur = nil
	t.mu.Unlock()

	if c == nil {
		return false
	}

	c.cancel()
	<-c.done

	if c.completed.Load() {
		return false
	}
	t.log.Debug("countdown stopped", zap.Stringer("countdown", c.id))
	return true
}

// Running reports whether a countdown is in progress.
func (t *Timer) Running() bool {
	_, ok := t.Remaining()
	return ok
}

// Remaining returns the seconds left on the running countdown.
//
// Returns:
//   - int: The seconds left, zero when idle.
//   - bool: True if a countdown is in progress.
func (t *Timer) Remaining() (int, bool) {
	t.mu.Lock()
	c := t.cur
	t.mu.Unlock()

	if c == nil {
		return 0, false
	}
	select {
	case <-c.done:
		return 0, false
	default:
		return int(c.remaining.Load()), true
	}
}

// clear forgets c if it is still the current countdown.
func (t *Timer) clear(c *countdown) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == c {
		t.cur = nil
	}
}

func (t *Timer) loop(ctx context.Context, c *countdown) {
	defer close(c.done)

	ticker := time.NewTicker(t.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		left := c.remaining.Add(-1)
		if left <= 0 {
			c.completed.Store(true)
			t.clear(c)
			t.sink.Show(t.config.CompleteMessage)
			t.log.Info("countdown complete", zap.Stringer("countdown", c.id))
			return
		}
		t.sink.Show(Format(int(left)))
	}
}
