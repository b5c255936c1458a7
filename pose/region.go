package pose

// Region is a coarse grouping of keypoints used to aggregate deviation.
type Region int

const (
	// RegionNone marks keypoints that belong to no region (wrists, unknown names).
	RegionNone Region = iota
	// RegionUpper covers the head, shoulders and elbows.
	RegionUpper
	// RegionLower covers the hips, knees and ankles.
	RegionLower
)

// Regions lists the classified regions in feedback order.
var Regions = []Region{RegionUpper, RegionLower}

// Keypoint names as reported by the estimator.
const (
	Nose          = "nose"
	LeftEye       = "leftEye"
	RightEye      = "rightEye"
	LeftEar       = "leftEar"
	RightEar      = "rightEar"
	LeftShoulder  = "leftShoulder"
	RightShoulder = "rightShoulder"
	LeftElbow     = "leftElbow"
	RightElbow    = "rightElbow"
	LeftWrist     = "leftWrist"
	RightWrist    = "rightWrist"
	LeftHip       = "leftHip"
	RightHip      = "rightHip"
	LeftKnee      = "leftKnee"
	RightKnee     = "rightKnee"
	LeftAnkle     = "leftAnkle"
	RightAnkle    = "rightAnkle"
)

// KeypointNames is the 17-point skeleton in model output order.
var KeypointNames = []string{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// regionTable is the fixed keypoint partition. Wrists are intentionally absent.
var regionTable = map[string]Region{
	Nose:          RegionUpper,
	LeftEye:       RegionUpper,
	RightEye:      RegionUpper,
	LeftEar:       RegionUpper,
	RightEar:      RegionUpper,
	LeftShoulder:  RegionUpper,
	RightShoulder: RegionUpper,
	LeftElbow:     RegionUpper,
	RightElbow:    RegionUpper,
	LeftHip:       RegionLower,
	RightHip:      RegionLower,
	LeftKnee:      RegionLower,
	RightKnee:     RegionLower,
	LeftAnkle:     RegionLower,
	RightAnkle:    RegionLower,
}

// RegionOf classifies a keypoint name. Unknown names yield RegionNone.
func RegionOf(name string) Region {
	return regionTable[name]
}

// String returns the region name.
func (r Region) String() string {
	switch r {
	case RegionUpper:
		return "upper"
	case RegionLower:
		return "lower"
	default:
		return "none"
	}
}

// Offset is the positional difference current - reference for one keypoint.
type Offset struct {
	DX float32 `json:"dx"`
	DY float32 `json:"dy"`
}

// RegionAggregate is the arithmetic mean of a region's offsets in one comparison.
type RegionAggregate struct {
	Region Region  `json:"region"`
	MeanDX float32 `json:"mean_dx"`
	MeanDY float32 `json:"mean_dy"`
}
