// Package controller - This file contains the control surface that routes user actions to training, monitoring and the countdown.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-posture/display"
	"github.com/nvr-ai/go-posture/pose"
	"github.com/nvr-ai/go-posture/training"
)

// Status lines shown on the output sink.
const (
	TrainingStarted    = "Training for correct posture..."
	TrainingComplete   = "Training for correct posture complete."
	TrainingFailed     = "Training failed"
	MonitoringEnabled  = "Monitoring enabled."
	MonitoringDisabled = "Monitoring disabled."
	MonitoringPrefix   = "Monitoring: "
)

// Trainer captures a reference pose. Reserve claims it for one capture and
// fails with training.ErrCaptureInProgress while another capture holds it.
type Trainer interface {
	Reserve() (func(context.Context) (pose.Frame, error), error)
	Busy() bool
}

// Monitor is a start/stop monitoring session.
type Monitor interface {
	Start() bool
	Stop() bool
	Running() bool
	LastFeedback() string
}

// Countdown is a restartable countdown timer.
type Countdown interface {
	Start(seconds int)
	Stop() bool
	Remaining() (int, bool)
}

// References exposes the current reference pose.
type References interface {
	Reference() (training.Reference, bool)
}

// Status is a point-in-time view of the controller.
type Status struct {
	Training           bool       `json:"training"`
	Monitoring         bool       `json:"monitoring"`
	HasReference       bool       `json:"has_reference"`
	ReferenceCaptured  *time.Time `json:"reference_captured_at,omitempty"`
	ReferenceScore     float32    `json:"reference_score"`
	LastFeedback       string     `json:"last_feedback"`
	CountdownRunning   bool       `json:"countdown_running"`
	CountdownRemaining int        `json:"countdown_remaining"`
}

// FeedbackSink prefixes monitoring feedback the way it is shown on the output line.
func FeedbackSink(output display.Sink) display.Sink {
	return display.Prefixed(MonitoringPrefix, output)
}

// Controller is the control surface: train, toggle monitoring and start a countdown.
type Controller struct {
	Trainer    Trainer
	Monitor    Monitor
	Countdown  Countdown
	References References
	// Output receives status lines. Monitoring feedback reaches it through FeedbackSink.
	Output display.Sink
	Log    *zap.Logger

	toggle sync.Mutex
}

// New creates a controller.
//
// Arguments:
//   - trainer: Captures the reference pose.
//   - monitor: The monitoring session.
//   - countdown: The countdown timer.
//   - refs: The reference store.
//   - output: The status line sink.
//   - log: Logger, nil for none.
//
// Returns:
//   - *Controller: The controller.
//
// @example
// ctrl := controller.New(trainer, session, timer, store, output, log)
// go ctrl.Train(ctx)
func New(trainer Trainer, monitor Monitor, countdown Countdown, refs References, output display.Sink, log *zap.Logger) *Controller {
	if output == nil {
		output = display.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		Trainer:    trainer,
		Monitor:    monitor,
		Countdown:  countdown,
		References: refs,
		Output:     output,
		Log:        log,
	}
}

// Train captures a new reference pose, blocking through the settle delay.
//
// A request made while a capture is settling is rejected without touching
// the output line.
//
// Arguments:
//   - ctx: Cancels the capture.
//
// Returns:
//   - error: training.ErrCaptureInProgress or the capture failure.
func (c *Controller) Train(ctx context.Context) error {
	capture, err := c.reserve()
	if err != nil {
		return err
	}
	return c.runCapture(ctx, capture)
}

// StartTraining claims the trainer and runs the capture in the background.
// A busy trainer is reported synchronously, before anything is shown.
//
// Arguments:
//   - ctx: Cancels the capture.
//
// Returns:
//   - <-chan error: Receives the capture result once.
//   - error: training.ErrCaptureInProgress if a capture is settling.
//
// @example
// result, err := ctrl.StartTraining(ctx)
// if errors.Is(err, training.ErrCaptureInProgress) {
//     return
// }
// go func() { <-result }()
func (c *Controller) StartTraining(ctx context.Context) (<-chan error, error) {
	capture, err := c.reserve()
	if err != nil {
		return nil, err
	}

	result := make(chan error, 1)
	go func() {
		result <- c.runCapture(ctx, capture)
	}()
	return result, nil
}

func (c *Controller) reserve() (func(context.Context) (pose.Frame, error), error) {
	capture, err := c.Trainer.Reserve()
	if err != nil {
		return nil, err
	}
	c.Output.Show(TrainingStarted)
	return capture, nil
}

func (c *Controller) runCapture(ctx context.Context, capture func(context.Context) (pose.Frame, error)) error {
	frame, err := capture(ctx)
	if err != nil {
		c.Log.Warn("training failed", zap.Error(err))
		c.Output.Show(fmt.Sprintf("%s: %v.", TrainingFailed, errors.Cause(err)))
		return err
	}

	c.Log.Info("training complete", zap.Int("keypoints", frame.Len()))
	c.Output.Show(TrainingComplete)
	return nil
}

// ToggleMonitoring starts monitoring when stopped and stops it when running.
//
// Returns:
//   - bool: True if monitoring is enabled after the call.
func (c *Controller) ToggleMonitoring() bool {
	c.toggle.Lock()
	defer c.toggle.Unlock()

	if c.Monitor.Running() {
		c.Monitor.Stop()
		c.Output.Show(MonitoringDisabled)
		return false
	}

	c.Output.Show(MonitoringEnabled)
	c.Monitor.Start()
	return true
}

// StartCountdown starts or restarts the countdown.
//
// Arguments:
//   - seconds: The duration; zero or less completes immediately.
func (c *Controller) StartCountdown(seconds int) {
	c.Countdown.Start(seconds)
}

// Status reports the training, monitoring and countdown state.
func (c *Controller) Status() Status {
	status := Status{
		Training:     c.Trainer.Busy(),
		Monitoring:   c.Monitor.Running(),
		LastFeedback: c.Monitor.LastFeedback(),
	}
	status.CountdownRemaining, status.CountdownRunning = c.Countdown.Remaining()

	if c.References != nil {
		if ref, ok := c.References.Reference(); ok {
			captured := ref.CapturedAt
			status.HasReference = true
			status.ReferenceCaptured = &captured
			status.ReferenceScore = ref.Frame.Score()
		}
	}
	return status
}

// Close stops monitoring and the countdown.
func (c *Controller) Close() {
	c.Monitor.Stop()
	c.Countdown.Stop()
}
