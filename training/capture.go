package training

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/estimator"
	"github.com/nvr-ai/go-posture/pose"
)

var (
	// ErrCaptureInProgress is returned when a capture is requested while another is settling.
	ErrCaptureInProgress = errors.New("reference capture already in progress")
	// ErrLowQuality is returned when the captured frame scores below the configured minimum.
	ErrLowQuality = errors.New("captured pose score below minimum")
)

// Config controls reference capture.
type Config struct {
	// SettleDelay is how long the subject gets to assume the posture.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay" validate:"gte=0"`
	// MinScore rejects captures whose overall pose score is below it. Zero accepts anything.
	MinScore float32 `json:"min_score" yaml:"min_score" validate:"gte=0,lte=1"`
}

// DefaultConfig waits five seconds and accepts whatever the estimator returns.
func DefaultConfig() Config {
	return Config{SettleDelay: 5 * time.Second}
}

// Trainer captures reference poses into a Store.
//
// Captures do not overlap: a request made while another capture is settling
// fails with ErrCaptureInProgress and the running capture is unaffected.
type Trainer struct {
	config Config
	est    estimator.Estimator
	store  *Store
	log    *zap.Logger
	busy   atomic.Bool
}

// NewTrainer creates a trainer.
//
// Arguments:
//   - config: Settle delay and quality gate.
//   - est: The pose estimator.
//   - store: The reference store to write.
//   - log: Logger, nil for none.
//
// Returns:
//   - *Trainer: The trainer.
func NewTrainer(config Config, est estimator.Estimator, store *Store, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{config: config, est: est, store: store, log: log}
}

// Busy reports whether a capture is in progress.
func (t *Trainer) Busy() bool {
	return t.busy.Load()
}

// Reserve claims the trainer for one capture. The returned function performs
// the capture and releases the claim; it must be called exactly once.
//
// Returns:
//   - func(context.Context) (pose.Frame, error): Runs the reserved capture.
//   - error: ErrCaptureInProgress if another capture holds the trainer.
//
// @example
// capture, err := trainer.Reserve()
// if err != nil {
//     return err
// }
// go capture(ctx)
func (t *Trainer) Reserve() (func(context.Context) (pose.Frame, error), error) {
	if !t.busy.CompareAndSwap(false, true) {
		t.log.Warn("reference capture rejected, another capture is settling")
		return nil, ErrCaptureInProgress
	}
	return func(ctx context.Context) (pose.Frame, error) {
		defer t.busy.Store(false)
		return t.capture(ctx)
	}, nil
}

// Capture waits for the settle delay, estimates one frame and stores it as the reference.
//
// An estimator failure or a rejected frame leaves the previous reference in place.
//
// Arguments:
//   - ctx: Cancelling it aborts the wait or the estimation.
//
// Returns:
//   - pose.Frame: The new reference.
//   - error: ErrCaptureInProgress, ErrLowQuality, a context error or an estimator error.
//
// @example
// frame, err := trainer.Capture(ctx)
// if errors.Is(err, training.ErrCaptureInProgress) {
//     return
// }
func (t *Trainer) Capture(ctx context.Context) (pose.Frame, error) {
	capture, err := t.Reserve()
	if err != nil {
		return pose.Frame{}, err
	}
	return capture(ctx)
}

func (t *Trainer) capture(ctx context.Context) (pose.Frame, error) {
	t.log.Info("reference capture started", zap.Duration("settle_delay", t.config.SettleDelay))

	if t.config.SettleDelay > 0 {
		timer := time.NewTimer(t.config.SettleDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return pose.Frame{}, errors.Wrap(ctx.Err(), "reference capture cancelled")
		case <-timer.C:
		}
	}

	frame, err := t.est.Estimate(ctx)
	if err != nil {
		return pose.Frame{}, errors.Wrap(err, "reference estimation failed")
	}

	if frame.Score() < t.config.MinScore {
		t.log.Warn("reference capture rejected",
			zap.Float32("score", frame.Score()),
			zap.Float32("min_score", t.config.MinScore))
		return pose.Frame{}, errors.Wrapf(ErrLowQuality, "score %.2f", frame.Score())
	}

	t.store.Set(frame)
	t.log.Info("reference captured", zap.Int("keypoints", frame.Len()), zap.Float32("score", frame.Score()))
	return frame, nil
}
