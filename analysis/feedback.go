package analysis

import (
	"strings"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-posture/pose"
)

// Magnitude returns the length of the aggregate's mean offset vector.
func Magnitude(agg pose.RegionAggregate) float32 {
	return math32.Sqrt(agg.MeanDX*agg.MeanDX + agg.MeanDY*agg.MeanDY)
}

// Direction picks the correction phrase for an aggregate.
//
// The axis with the larger absolute mean wins; ties go to the horizontal axis.
// A positive vertical mean yields "move down", a positive horizontal mean
// yields "move left".
//
// Arguments:
//   - agg: The region aggregate.
//   - threshold: The region tolerance; the magnitude must exceed it.
//
// Returns:
//   - string: The phrase, empty if within tolerance.
//   - bool: True if a phrase was produced.
func Direction(agg pose.RegionAggregate, threshold float32) (string, bool) {
	if Magnitude(agg) <= threshold {
		return "", false
	}

	if math32.Abs(agg.MeanDY) > math32.Abs(agg.MeanDX) {
		if agg.MeanDY > 0 {
			return MoveDown, true
		}
		return MoveUp, true
	}

	if agg.MeanDX > 0 {
		return MoveLeft, true
	}
	return MoveRight, true
}

// GenerateFeedback turns grouped offsets into the feedback text with the default tolerances.
func GenerateFeedback(offsets Offsets) string {
	return DefaultConfig().GenerateFeedback(offsets)
}

// GenerateFeedback turns grouped offsets into a single feedback string.
//
// Regions are visited upper first. A region without offsets contributes
// nothing. The phrases that remain are joined with ". " and terminated with
// a period; with no phrase at all the result is PoseCorrect.
//
// Arguments:
//   - offsets: The offsets grouped by region.
//
// Returns:
//   - string: The feedback text.
//
// @example
// text := cfg.GenerateFeedback(cfg.ComputeOffsets(reference, current))
// fmt.Println(text) // "move up. move left."
func (c Config) GenerateFeedback(offsets Offsets) string {
	phrases := make([]string, 0, len(pose.Regions))
	for _, region := range pose.Regions {
		threshold, ok := c.Threshold(region)
		if !ok {
			continue
		}
		agg, ok := Aggregate(region, offsets[region])
		if !ok {
			continue
		}
		if phrase, ok := Direction(agg, threshold); ok {
			phrases = append(phrases, phrase)
		}
	}

	if len(phrases) == 0 {
		return PoseCorrect
	}
	return strings.Join(phrases, ". ") + "."
}

// Compare runs the full comparison of a live frame against an optional reference.
//
// Arguments:
//   - reference: The reference frame, nil when none was captured.
//   - current: The live frame.
//
// Returns:
//   - string: NoTrainingData without a reference, otherwise the feedback text.
func (c Config) Compare(reference *pose.Frame, current pose.Frame) string {
	if reference == nil {
		return NoTrainingData
	}
	return c.GenerateFeedback(c.ComputeOffsets(*reference, current))
}
