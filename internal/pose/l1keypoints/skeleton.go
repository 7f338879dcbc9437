package l1keypoints

import (
	"fmt"
	"slices"
)

// Bone is a renderable skeletal edge between two keypoints.
type Bone struct {
	A, B BodyPart
}

// Skeleton is the estimator's bone topology. It is queried once per session
// and never changes afterwards, so a Skeleton value may be shared between
// goroutines without locking.
type Skeleton struct {
	bones []Bone
}

// defaultBones is the MoveNet/COCO edge list returned by the estimator's
// skeleton query.
var defaultBones = []Bone{
	{Nose, LeftEye},
	{Nose, RightEye},
	{LeftEye, LeftEar},
	{RightEye, RightEar},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightElbow},
	{RightShoulder, RightHip},
	{LeftElbow, LeftWrist},
	{RightElbow, RightWrist},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee},
	{RightHip, RightKnee},
	{LeftKnee, LeftAnkle},
	{RightKnee, RightAnkle},
}

// DefaultSkeleton returns the standard 16-bone topology.
func DefaultSkeleton() Skeleton {
	return Skeleton{bones: slices.Clone(defaultBones)}
}

// NewSkeleton validates index pairs received from the estimator.
func NewSkeleton(pairs [][2]int) (Skeleton, error) {
	bones := make([]Bone, 0, len(pairs))
	for i, p := range pairs {
		a, b := BodyPart(p[0]), BodyPart(p[1])
		if !a.Valid() || !b.Valid() {
			return Skeleton{}, fmt.Errorf("bone %d: index pair (%d,%d) outside layout", i, p[0], p[1])
		}
		bones = append(bones, Bone{A: a, B: b})
	}
	return Skeleton{bones: bones}, nil
}

// Bones returns a copy of the bone list.
func (s Skeleton) Bones() []Bone {
	return slices.Clone(s.bones)
}

// Len returns the number of bones.
func (s Skeleton) Len() int { return len(s.bones) }

// Pairs returns the topology as raw index pairs, the form used on the wire.
func (s Skeleton) Pairs() [][2]int {
	out := make([][2]int, len(s.bones))
	for i, b := range s.bones {
		out[i] = [2]int{int(b.A), int(b.B)}
	}
	return out
}
