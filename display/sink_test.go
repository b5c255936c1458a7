package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-posture/pose"
)

func TestFanoutAndPrefix(t *testing.T) {
	a := NewRecorder(4)
	b := NewRecorder(4)
	sink := Fanout{a, nil, Prefixed("Monitoring: ", b)}

	sink.Show("Pose is correct.")

	assert.Equal(t, []string{"Pose is correct."}, a.All())
	assert.Equal(t, []string{"Monitoring: Pose is correct."}, b.All())
	assert.Equal(t, "Pose is correct.", <-a.Messages())
}

func TestRecorderCount(t *testing.T) {
	r := NewRecorder(0)
	r.Show("a")
	r.Show("b")
	r.Show("a")

	assert.Equal(t, 2, r.Count("a"))
	assert.Equal(t, "a", r.Last())
	assert.Empty(t, NewRecorder(0).Last())
}

func TestConsoleWritesLabel(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole("timer", &buf)
	c.Show("00:05")

	assert.Contains(t, buf.String(), "timer")
	assert.Contains(t, buf.String(), "00:05")
}

func TestOverlayVisible(t *testing.T) {
	o := NewOverlay(DefaultOverlayConfig())
	assert.Empty(t, o.Visible())

	o.Observe(pose.MustFrame(0.4, []pose.Keypoint{{Name: pose.Nose, Confidence: 0.9}}))
	assert.Empty(t, o.Visible(), "low pose score hides every keypoint")

	o.Observe(pose.MustFrame(0.5, []pose.Keypoint{
		{Name: pose.Nose, Confidence: 0.9},
		{Name: pose.LeftEye, Confidence: 0.5},
		{Name: pose.RightEye, Confidence: 0.49},
	}))
	visible := o.Visible()
	assert.Len(t, visible, 2)
	assert.Equal(t, pose.Nose, visible[0].Name)
	assert.Equal(t, pose.LeftEye, visible[1].Name)
}
