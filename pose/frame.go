// Package pose - Keypoint frames produced by a single-person pose estimator.
package pose

import (
	"github.com/pkg/errors"
)

// ErrDuplicateKeypoint is returned when a frame would hold two keypoints with the same name.
var ErrDuplicateKeypoint = errors.New("duplicate keypoint name")

// Keypoint is a named anatomical landmark with its estimated position and confidence.
type Keypoint struct {
	// Name identifies the body part, e.g. "leftShoulder".
	Name string `json:"name"`
	// X is the horizontal position in source image pixels.
	X float32 `json:"x"`
	// Y is the vertical position in source image pixels.
	Y float32 `json:"y"`
	// Confidence is the estimator score for this keypoint in the range [0, 1].
	Confidence float32 `json:"confidence"`
}

// Frame is one complete set of keypoints from a single estimation call.
//
// A Frame is immutable once built: keypoints are unique by name and the
// backing slice is never handed out for mutation.
type Frame struct {
	score     float32
	keypoints []Keypoint
	index     map[string]int
}

// NewFrame builds a frame from the estimator output.
//
// Arguments:
//   - score: The overall pose score.
//   - keypoints: The keypoints of the pose, unique by name.
//
// Returns:
//   - Frame: The immutable frame.
//   - error: ErrDuplicateKeypoint if two keypoints share a name.
//
// @example
// frame, err := pose.NewFrame(0.9, []pose.Keypoint{{Name: "nose", X: 320, Y: 120, Confidence: 0.98}})
func NewFrame(score float32, keypoints []Keypoint) (Frame, error) {
	index := make(map[string]int, len(keypoints))
	owned := make([]Keypoint, len(keypoints))
	for i, kp := range keypoints {
		if _, exists := index[kp.Name]; exists {
			return Frame{}, errors.Wrapf(ErrDuplicateKeypoint, "keypoint %q", kp.Name)
		}
		index[kp.Name] = i
		owned[i] = kp
	}

	return Frame{score: score, keypoints: owned, index: index}, nil
}

// MustFrame is like NewFrame but panics on duplicate names.
func MustFrame(score float32, keypoints []Keypoint) Frame {
	frame, err := NewFrame(score, keypoints)
	if err != nil {
		panic(err)
	}
	return frame
}

// Score returns the overall pose score.
func (f Frame) Score() float32 {
	return f.score
}

// Len returns the number of keypoints in the frame.
func (f Frame) Len() int {
	return len(f.keypoints)
}

// Keypoints returns a copy of the frame's keypoints in estimator order.
func (f Frame) Keypoints() []Keypoint {
	out := make([]Keypoint, len(f.keypoints))
	copy(out, f.keypoints)
	return out
}

// Each calls fn for every keypoint in estimator order without copying.
func (f Frame) Each(fn func(Keypoint)) {
	for _, kp := range f.keypoints {
		fn(kp)
	}
}

// Lookup finds a keypoint by name.
//
// Arguments:
//   - name: The keypoint name.
//
// Returns:
//   - Keypoint: The keypoint, zero value if absent.
//   - bool: True if the frame holds a keypoint with that name.
func (f Frame) Lookup(name string) (Keypoint, bool) {
	i, ok := f.index[name]
	if !ok {
		return Keypoint{}, false
	}
	return f.keypoints[i], true
}
