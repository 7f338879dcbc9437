package l1keypoints

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// BodyPart identifies a keypoint slot in the estimator's fixed 17-entry
// layout. The numeric value is the index into Pose.Keypoints.
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumBodyParts is the length of a well-formed pose.
const NumBodyParts = 17

var bodyPartNames = [NumBodyParts]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// String returns the estimator's snake_case name for the part.
func (p BodyPart) String() string {
	if p.Valid() {
		return bodyPartNames[p]
	}
	return fmt.Sprintf("BodyPart(%d)", int(p))
}

// Valid reports whether p is inside the fixed layout.
func (p BodyPart) Valid() bool {
	return p >= 0 && p < NumBodyParts
}

// Keypoint is one estimated 2D landmark in capture pixel coordinates.
type Keypoint struct {
	Part       BodyPart
	Name       string
	X, Y       float64
	Confidence float64 // [0,1]
}

// Vec returns the keypoint position as a vector.
func (k Keypoint) Vec() r2.Vec {
	return r2.Vec{X: k.X, Y: k.Y}
}

// Pose is the ordered keypoint set for one detected person in one
// detection cycle. Poses are replaced, never mutated, by the next batch.
type Pose struct {
	Keypoints []Keypoint
	Score     float64
}

// At returns the keypoint for part. A pose shorter than the fixed layout
// yields a zero keypoint whose confidence fails every gate.
func (p Pose) At(part BodyPart) Keypoint {
	if !part.Valid() || int(part) >= len(p.Keypoints) {
		return Keypoint{Part: part}
	}
	return p.Keypoints[part]
}

// NewPose builds a pose from keypoints in layout order, stamping each
// keypoint's Part and Name from its index.
func NewPose(score float64, keypoints ...Keypoint) Pose {
	kps := make([]Keypoint, len(keypoints))
	for i, kp := range keypoints {
		kp.Part = BodyPart(i)
		if kp.Name == "" && kp.Part.Valid() {
			kp.Name = kp.Part.String()
		}
		kps[i] = kp
	}
	return Pose{Keypoints: kps, Score: score}
}
