package analysis

import (
	"github.com/nvr-ai/go-posture/pose"
)

// Offsets maps each classified region to the offsets of its matched keypoints.
type Offsets map[pose.Region][]pose.Offset

// ComputeOffsets compares two frames with the default tolerances.
func ComputeOffsets(reference, current pose.Frame) Offsets {
	return DefaultConfig().ComputeOffsets(reference, current)
}

// ComputeOffsets computes the per-region offsets between a reference and a current frame.
//
// Only keypoints present in both frames with a confidence above MinConfidence
// contribute. Keypoints whose name maps to no region are dropped. Every
// classified region is present in the result, possibly with an empty list.
//
// Arguments:
//   - reference: The stored reference frame.
//   - current: The live frame.
//
// Returns:
//   - Offsets: The offsets grouped by region, in current frame order.
//
// @example
// offsets := analysis.DefaultConfig().ComputeOffsets(reference, current)
// fmt.Printf("upper matches: %d\n", len(offsets[pose.RegionUpper]))
func (c Config) ComputeOffsets(reference, current pose.Frame) Offsets {
	out := make(Offsets, len(pose.Regions))
	for _, region := range pose.Regions {
		out[region] = []pose.Offset{}
	}

	current.Each(func(kp pose.Keypoint) {
		if kp.Confidence <= c.MinConfidence {
			return
		}
		ref, ok := reference.Lookup(kp.Name)
		if !ok || ref.Confidence <= c.MinConfidence {
			return
		}
		region := pose.RegionOf(kp.Name)
		if region == pose.RegionNone {
			return
		}
		out[region] = append(out[region], pose.Offset{
			DX: kp.X - ref.X,
			DY: kp.Y - ref.Y,
		})
	})

	return out
}

// Aggregate computes the mean offset of a region.
//
// Arguments:
//   - region: The region the offsets belong to.
//   - offsets: The matched offsets.
//
// Returns:
//   - pose.RegionAggregate: The mean offset.
//   - bool: False when offsets is empty; the aggregate is undefined then.
func Aggregate(region pose.Region, offsets []pose.Offset) (pose.RegionAggregate, bool) {
	if len(offsets) == 0 {
		return pose.RegionAggregate{Region: region}, false
	}

	var sumX, sumY float32
	for _, o := range offsets {
		sumX += o.DX
		sumY += o.DY
	}
	n := float32(len(offsets))

	return pose.RegionAggregate{
		Region: region,
		MeanDX: sumX / n,
		MeanDY: sumY / n,
	}, true
}
