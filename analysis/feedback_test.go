package analysis

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-posture/pose"
)

func TestGenerateFeedbackIdenticalFrames(t *testing.T) {
	frame := standingFrame(t, 0, 0, 0.9)
	assert.Equal(t, PoseCorrect, GenerateFeedback(ComputeOffsets(frame, frame)))
}

func TestCompareWithoutReference(t *testing.T) {
	cfg := DefaultConfig()
	frames := []pose.Frame{
		{},
		standingFrame(t, 0, 0, 0.9),
		standingFrame(t, 200, 200, 0.9),
	}
	for _, current := range frames {
		assert.Equal(t, NoTrainingData, cfg.Compare(nil, current))
	}
}

func TestCompareWithReference(t *testing.T) {
	cfg := DefaultConfig()
	reference := standingFrame(t, 0, 0, 0.9)

	assert.Equal(t, PoseCorrect, cfg.Compare(&reference, standingFrame(t, 3, 3, 0.9)))
	assert.Equal(t, "move down. move down.", cfg.Compare(&reference, standingFrame(t, 0, 45, 0.9)))
	assert.Equal(t, "move up.", cfg.Compare(&reference, standingFrame(t, 0, -25, 0.9)))
	assert.Equal(t, PoseCorrect, cfg.Compare(&reference, standingFrame(t, 0, -25, 0.3)))
}

func TestDirectionSignMapping(t *testing.T) {
	tests := []struct {
		name      string
		agg       pose.RegionAggregate
		threshold float32
		expected  string
	}{
		{"positive dx", pose.RegionAggregate{MeanDX: 25}, 20, MoveLeft},
		{"negative dx", pose.RegionAggregate{MeanDX: -25}, 20, MoveRight},
		{"positive dy lower", pose.RegionAggregate{Region: pose.RegionLower, MeanDY: 40}, 30, MoveDown},
		{"negative dy lower", pose.RegionAggregate{Region: pose.RegionLower, MeanDY: -40}, 30, MoveUp},
		{"vertical dominates", pose.RegionAggregate{MeanDX: 15, MeanDY: -30}, 20, MoveUp},
		{"horizontal dominates", pose.RegionAggregate{MeanDX: -30, MeanDY: 15}, 20, MoveRight},
		{"tie goes horizontal", pose.RegionAggregate{MeanDX: 20, MeanDY: 20}, 20, MoveLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phrase, ok := Direction(tt.agg, tt.threshold)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, phrase)
		})
	}
}

func TestDirectionThresholdBoundary(t *testing.T) {
	atBoundary := pose.RegionAggregate{Region: pose.RegionUpper, MeanDX: 12, MeanDY: 16}
	assert.Equal(t, float32(20), Magnitude(atBoundary))

	_, ok := Direction(atBoundary, 20)
	assert.False(t, ok, "magnitude equal to threshold must not trigger")

	above := pose.RegionAggregate{Region: pose.RegionUpper, MeanDX: 12, MeanDY: 16.5}
	phrase, ok := Direction(above, 20)
	assert.True(t, ok)
	assert.Equal(t, MoveDown, phrase)
}

func TestGenerateFeedbackRegions(t *testing.T) {
	tests := []struct {
		name     string
		offsets  Offsets
		expected string
	}{
		{
			name:     "no evidence anywhere",
			offsets:  Offsets{pose.RegionUpper: {}, pose.RegionLower: {}},
			expected: PoseCorrect,
		},
		{
			name:     "nil map",
			offsets:  nil,
			expected: PoseCorrect,
		},
		{
			name: "upper exactly at threshold",
			offsets: Offsets{
				pose.RegionUpper: {{DX: 12, DY: 16}},
			},
			expected: PoseCorrect,
		},
		{
			name: "lower within its wider tolerance",
			offsets: Offsets{
				pose.RegionLower: {{DX: 0, DY: 25}, {DX: 0, DY: 25}},
			},
			expected: PoseCorrect,
		},
		{
			name: "upper only",
			offsets: Offsets{
				pose.RegionUpper: {{DX: -25, DY: 0}},
				pose.RegionLower: {},
			},
			expected: "move right.",
		},
		{
			name: "lower only, upper empty",
			offsets: Offsets{
				pose.RegionUpper: {},
				pose.RegionLower: {{DX: 0, DY: -40}},
			},
			expected: "move up.",
		},
		{
			name: "both regions in order",
			offsets: Offsets{
				pose.RegionLower: {{DX: 0, DY: 40}, {DX: 0, DY: 40}},
				pose.RegionUpper: {{DX: 30, DY: 1}, {DX: 20, DY: -1}},
			},
			expected: "move left. move down.",
		},
		{
			name: "opposite offsets cancel",
			offsets: Offsets{
				pose.RegionUpper: {{DX: 100, DY: 0}, {DX: -100, DY: 0}},
			},
			expected: PoseCorrect,
		},
		{
			name: "unclassified region ignored",
			offsets: Offsets{
				pose.RegionNone: {{DX: 500, DY: 500}},
			},
			expected: PoseCorrect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateFeedback(tt.offsets))
		})
	}
}

func TestGenerateFeedbackNeverNaN(t *testing.T) {
	agg, ok := Aggregate(pose.RegionUpper, []pose.Offset{})
	assert.False(t, ok)
	assert.False(t, math32.IsNaN(Magnitude(agg)))
}

func TestCustomThresholds(t *testing.T) {
	cfg := Config{MinConfidence: 0.5, UpperThreshold: 5, LowerThreshold: 50}
	offsets := Offsets{
		pose.RegionUpper: {{DX: 6, DY: 0}},
		pose.RegionLower: {{DX: 0, DY: 45}},
	}
	assert.Equal(t, "move left.", cfg.GenerateFeedback(offsets))
}
