// Package analysis - Pose deviation analysis between a reference and a live keypoint frame.
package analysis

import (
	"github.com/nvr-ai/go-posture/pose"
)

// Canonical feedback strings.
const (
	// NoTrainingData is returned when no reference pose has been captured.
	NoTrainingData = "No training data."
	// PoseCorrect is returned when every region is within tolerance or has no evidence.
	PoseCorrect = "Pose is correct."
)

// Direction phrases emitted for a region that exceeds its threshold.
const (
	MoveUp    = "move up"
	MoveDown  = "move down"
	MoveLeft  = "move left"
	MoveRight = "move right"
)

// Config contains the tolerances used when comparing two frames.
type Config struct {
	// MinConfidence is the exclusive lower bound a keypoint score must exceed
	// in both frames to be compared.
	MinConfidence float32 `json:"min_confidence" yaml:"min_confidence" validate:"gte=0,lte=1"`
	// UpperThreshold is the upper body tolerance in keypoint coordinate units.
	UpperThreshold float32 `json:"upper_threshold" yaml:"upper_threshold" validate:"gt=0"`
	// LowerThreshold is the lower body tolerance in keypoint coordinate units.
	LowerThreshold float32 `json:"lower_threshold" yaml:"lower_threshold" validate:"gt=0"`
}

// DefaultConfig returns the tolerances of the reference posture trainer.
//
// Returns:
//   - Config: Confidence 0.5, upper body 20 units, lower body 30 units.
func DefaultConfig() Config {
	return Config{
		MinConfidence:  0.5,
		UpperThreshold: 20,
		LowerThreshold: 30,
	}
}

// Threshold returns the tolerance for a region. Unclassified regions have none.
func (c Config) Threshold(region pose.Region) (float32, bool) {
	switch region {
	case pose.RegionUpper:
		return c.UpperThreshold, true
	case pose.RegionLower:
		return c.LowerThreshold, true
	default:
		return 0, false
	}
}
