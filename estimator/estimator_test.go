package estimator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-posture/pose"
)

func TestGuardReturnsFrame(t *testing.T) {
	frame := pose.MustFrame(0.9, []pose.Keypoint{{Name: pose.Nose, X: 1, Y: 2, Confidence: 0.9}})
	g := NewGuard(Func(func(context.Context) (pose.Frame, error) { return frame, nil }), time.Second, nil)

	got, ok := g.Acquire(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, got.Len())

	got, ok = g.Acquire(context.Background())
	require.True(t, ok, "back to back acquisitions must not see a stale in-flight flag")
	assert.Equal(t, 1, got.Len())
}

func TestGuardAbsorbsFailures(t *testing.T) {
	tests := []struct {
		name string
		est  Estimator
	}{
		{
			name: "error",
			est: Func(func(context.Context) (pose.Frame, error) {
				return pose.Frame{}, errors.New("camera unplugged")
			}),
		},
		{
			name: "panic",
			est: Func(func(context.Context) (pose.Frame, error) {
				panic("model crashed")
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.est, time.Second, nil)
			frame, ok := g.Acquire(context.Background())
			assert.False(t, ok)
			assert.Equal(t, 0, frame.Len())
		})
	}
}

func TestGuardTimeoutAndSingleFlight(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	slow := Func(func(ctx context.Context) (pose.Frame, error) {
		calls.Add(1)
		<-release
		return pose.Frame{}, nil
	})
	g := NewGuard(slow, 20*time.Millisecond, nil)

	start := time.Now()
	frame, ok := g.Acquire(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 0, frame.Len())
	assert.Less(t, time.Since(start), time.Second)

	_, ok = g.Acquire(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load(), "a second call must not start while the first is in flight")

	close(release)
	assert.Eventually(t, func() bool {
		_, ok := g.Acquire(context.Background())
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestGuardCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGuard(Func(func(ctx context.Context) (pose.Frame, error) {
		<-ctx.Done()
		return pose.Frame{}, ctx.Err()
	}), 0, nil)

	_, ok := g.Acquire(ctx)
	assert.False(t, ok)
}

func TestDecodeKeypoints(t *testing.T) {
	data := make([]float32, 17*3)
	for k := 0; k < 17; k++ {
		data[k*3+0] = 0.5  // y
		data[k*3+1] = 0.25 // x
		data[k*3+2] = 0.8  // score
	}
	data[0*3+2] = 0.2

	frame, err := decodeKeypoints(data, 640, 480)
	require.NoError(t, err)
	require.Equal(t, 17, frame.Len())

	nose, ok := frame.Lookup(pose.Nose)
	require.True(t, ok)
	assert.Equal(t, float32(160), nose.X)
	assert.Equal(t, float32(240), nose.Y)
	assert.Equal(t, float32(0.2), nose.Confidence)

	ankle, ok := frame.Lookup(pose.RightAnkle)
	require.True(t, ok)
	assert.Equal(t, float32(0.8), ankle.Confidence)

	assert.InDelta(t, (0.2+16*0.8)/17, frame.Score(), 1e-5)
}

func TestDecodeKeypointsWrongSize(t *testing.T) {
	_, err := decodeKeypoints(make([]float32, 10), 640, 480)
	assert.Error(t, err)
}

func TestPrepareInput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	dst := make([]float32, 8*8*3)
	require.NoError(t, prepareInput(img, 8, dst))
	assert.InDelta(t, 200, dst[0], 1)
	assert.InDelta(t, 100, dst[1], 1)
	assert.InDelta(t, 50, dst[2], 1)

	assert.Error(t, prepareInput(img, 16, dst))
}

func BenchmarkPrepareInput(b *testing.B) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	dst := make([]float32, 192*192*3)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := prepareInput(img, 192, dst); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeKeypoints(b *testing.B) {
	data := make([]float32, 17*3)
	for i := range data {
		data[i] = 0.5
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := decodeKeypoints(data, 640, 480); err != nil {
			b.Fatal(err)
		}
	}
}
