package main

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nvr-ai/go-posture/controller"
	"github.com/nvr-ai/go-posture/countdown"
	"github.com/nvr-ai/go-posture/display"
	"github.com/nvr-ai/go-posture/estimator"
	"github.com/nvr-ai/go-posture/monitor"
	"github.com/nvr-ai/go-posture/pose"
	"github.com/nvr-ai/go-posture/training"
)

func TestControlLoop(t *testing.T) {
	est := estimator.Func(func(ctx context.Context) (pose.Frame, error) {
		return pose.MustFrame(0.9, []pose.Keypoint{{Name: pose.Nose, X: 10, Y: 10, Confidence: 0.9}}), nil
	})

	output := display.NewRecorder(32)
	timerOutput := display.NewRecorder(32)
	store := training.NewStore()
	trainer := training.NewTrainer(training.Config{}, est, store, nil)
	session := monitor.New(monitor.Config{Interval: time.Hour, AcquireTimeout: time.Second}, est, store, controller.FeedbackSink(output))
	timer := countdown.New(countdown.Config{Tick: time.Hour}, timerOutput, nil)
	ctrl := controller.New(trainer, session, timer, store, output, nil)
	defer ctrl.Close()

	var quit atomic.Int32
	input := strings.NewReader("m\n\nc 90\nc\nc soon\nbogus\ns\nM\nt\nq\nm\n")

	controlLoop(context.Background(), input, ctrl, zap.NewNop(), func() { quit.Add(1) })

	assert.Equal(t, int32(1), quit.Load())
	assert.Equal(t, []string{"01:30"}, timerOutput.All())
	assert.False(t, session.Running(), "commands after q are not read")

	require.Eventually(t, func() bool {
		return output.Count(controller.TrainingComplete) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{
		controller.MonitoringEnabled,
		controller.MonitoringDisabled,
		controller.TrainingStarted,
		controller.TrainingComplete,
	}, output.All())
	assert.NotNil(t, store.Load())
}

func TestExitCodeFlushesBufferedLogs(t *testing.T) {
	var out bytes.Buffer
	ws := &zapcore.BufferedWriteSyncer{WS: zapcore.AddSync(&out), Size: 64 * 1024, FlushInterval: time.Hour}
	defer func() { _ = ws.Stop() }()

	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), ws, zapcore.InfoLevel)
	log := zap.New(core)

	assert.Equal(t, 0, exitCode(nil, log))
	assert.NotContains(t, out.String(), "posture trainer failed")

	assert.Equal(t, 1, exitCode(errors.New("camera unavailable"), log))
	assert.Contains(t, out.String(), "posture trainer failed")
	assert.Contains(t, out.String(), "camera unavailable")
}
