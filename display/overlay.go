package display

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-posture/pose"
)

// OverlayConfig controls keypoint rendering.
type OverlayConfig struct {
	// MinPoseScore is the overall score a frame needs before any keypoint is drawn.
	MinPoseScore float32 `json:"min_pose_score" yaml:"min_pose_score" validate:"gte=0,lte=1"`
	// MinKeypointScore is the score a keypoint needs to be drawn.
	MinKeypointScore float32 `json:"min_keypoint_score" yaml:"min_keypoint_score" validate:"gte=0,lte=1"`
	// Radius of the keypoint dots in pixels.
	Radius int `json:"radius" yaml:"radius" validate:"gt=0"`
}

// DefaultOverlayConfig draws 5px dots for keypoints scoring at least 0.5 on poses scoring at least 0.5.
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		MinPoseScore:     0.5,
		MinKeypointScore: 0.5,
		Radius:           5,
	}
}

// Overlay renders the latest estimated pose and display text onto camera frames.
//
// It is a Sink for text and an observer for frames; Draw is called from the
// goroutine that owns the gocv window.
type Overlay struct {
	config OverlayConfig

	mu    sync.RWMutex
	frame pose.Frame
	text  string
}

// NewOverlay creates an overlay renderer.
func NewOverlay(config OverlayConfig) *Overlay {
	return &Overlay{config: config}
}

// Show stores text to draw on the next frame.
func (o *Overlay) Show(text string) {
	o.mu.Lock()
	o.text = text
	o.mu.Unlock()
}

// Observe stores the most recently estimated pose.
func (o *Overlay) Observe(frame pose.Frame) {
	o.mu.Lock()
	o.frame = frame
	o.mu.Unlock()
}

// Visible returns the keypoints that pass the score gates.
//
// Returns:
//   - []pose.Keypoint: Nothing when the pose score is below MinPoseScore.
func (o *Overlay) Visible() []pose.Keypoint {
	o.mu.RLock()
	frame := o.frame
	o.mu.RUnlock()

	if frame.Score() < o.config.MinPoseScore {
		return nil
	}
	var out []pose.Keypoint
	frame.Each(func(kp pose.Keypoint) {
		if kp.Confidence >= o.config.MinKeypointScore {
			out = append(out, kp)
		}
	})
	return out
}

// Draw paints the visible keypoints and the current text onto img.
//
// Arguments:
//   - img: The camera frame to draw on.
func (o *Overlay) Draw(img *gocv.Mat) {
	red := color.RGBA{255, 0, 0, 0}
	for _, kp := range o.Visible() {
		gocv.Circle(img, image.Pt(int(kp.X), int(kp.Y)), o.config.Radius, red, -1)
	}

	o.mu.RLock()
	text := o.text
	o.mu.RUnlock()
	if text != "" {
		gocv.PutText(img, text, image.Pt(10, 30), gocv.FontHersheyPlain, 1.4, color.RGBA{255, 255, 255, 0}, 2)
	}
}
