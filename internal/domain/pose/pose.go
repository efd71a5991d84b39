// Package pose holds the read-only body tracking data handed to the game loop
// by the pose-estimation collaborator.
package pose

// Pose landmark indices following the MediaPipe pose topology.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Keypoint is one landmark: normalized position (0-1), depth and visibility.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Skeleton is the ordered landmark set of one detected person.
// Indexing is stable: Points[LeftWrist] is always the left wrist.
type Skeleton struct {
	Points [NumLandmarks]Keypoint `json:"points"`

	// supplied counts the leading points set by FromSlice from a short list.
	// A zero value with partial false means every point is present.
	supplied int
	partial  bool
}

// FromSlice builds a skeleton from an ordered landmark list. Missing trailing
// landmarks are left zero and reported absent by Has; extra ones are ignored.
func FromSlice(kps []Keypoint) Skeleton {
	var s Skeleton
	n := copy(s.Points[:], kps)
	if n < NumLandmarks {
		s.supplied = n
		s.partial = true
	}
	return s
}

// Has reports whether landmark i was supplied by the estimator.
func (s *Skeleton) Has(i int) bool {
	if i < 0 || i >= NumLandmarks {
		return false
	}
	return !s.partial || i < s.supplied
}

// Region selects which limbs are relevant for scoring.
type Region string

// Supported body regions.
const (
	RegionUpper Region = "upper"
	RegionLower Region = "lower"
)

var (
	upperIndices = []int{
		LeftWrist, RightWrist,
		LeftPinky, RightPinky,
		LeftIndex, RightIndex,
		LeftThumb, RightThumb,
	}
	lowerIndices = []int{
		LeftAnkle, RightAnkle,
		LeftHeel, RightHeel,
		LeftFootIndex, RightFootIndex,
	}
)

// Valid reports whether r names a known region.
func (r Region) Valid() bool {
	return r == RegionUpper || r == RegionLower
}

// Indices returns the landmark indices that can score for the region.
// Unknown regions fall back to the upper body.
func (r Region) Indices() []int {
	if r == RegionLower {
		return lowerIndices
	}
	return upperIndices
}
