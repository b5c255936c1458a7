// Package estimator - Pose estimation capability and the acquisition guard around it.
package estimator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/pose"
)

// ErrNoImage is returned when the image source has no frame to estimate yet.
var ErrNoImage = errors.New("no image available")

// Estimator maps the latest camera image to a single-person keypoint frame.
//
// Implementations may block and may fail; callers in the sampling loop go
// through Acquire so failures never escape.
type Estimator interface {
	Estimate(ctx context.Context) (pose.Frame, error)
}

// Func adapts a function to the Estimator interface.
type Func func(ctx context.Context) (pose.Frame, error)

// Estimate calls f(ctx).
func (f Func) Estimate(ctx context.Context) (pose.Frame, error) {
	return f(ctx)
}

// Guard runs estimations with a deadline and absorbs every failure.
//
// At most one estimation is in flight per guard. When a timed out call is
// still running, later acquisitions return the empty frame until it ends.
type Guard struct {
	est     Estimator
	timeout time.Duration
	log     *zap.Logger
	busy    atomic.Bool
}

// NewGuard wraps an estimator.
//
// Arguments:
//   - est: The estimator.
//   - timeout: Deadline for each call, zero for none.
//   - log: Logger for absorbed failures, nil for none.
//
// Returns:
//   - *Guard: The guarded estimator.
func NewGuard(est Estimator, timeout time.Duration, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{est: est, timeout: timeout, log: log}
}

// Acquire runs one estimation.
//
// A failed, timed out, panicking or cancelled estimation yields the empty
// frame, which carries no keypoints and therefore no evidence for any region.
//
// Arguments:
//   - ctx: Parent context for the call.
//
// Returns:
//   - pose.Frame: The estimated frame or the empty frame.
//   - bool: True if the estimator returned a frame.
func (g *Guard) Acquire(ctx context.Context) (pose.Frame, bool) {
	if !g.busy.CompareAndSwap(false, true) {
		g.log.Debug("previous pose acquisition still in flight")
		return pose.Frame{}, false
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type result struct {
		frame pose.Frame
		err   error
	}
	done := make(chan result, 1)
	go func() {
		var res result
		func() {
			defer func() {
				if r := recover(); r != nil {
					res.err = errors.Errorf("estimator panic: %v", r)
				}
			}()
			res.frame, res.err = g.est.Estimate(ctx)
		}()
		g.busy.Store(false)
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != nil {
			g.log.Warn("pose acquisition failed", zap.Error(res.err))
			return pose.Frame{}, false
		}
		return res.frame, true
	case <-ctx.Done():
		g.log.Warn("pose acquisition abandoned", zap.Error(ctx.Err()), zap.Duration("timeout", g.timeout))
		return pose.Frame{}, false
	}
}
