// Package testutil provides shared pose fixtures for tests.
//
// Fixtures start from an upright, fully confident person facing the camera
// in a 640x480 frame and are bent into the shape a test needs.
package testutil

import (
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

// FrameWidth and FrameHeight are the capture size fixtures assume.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// uprightXY is indexed by body part.
var uprightXY = [l1keypoints.NumBodyParts][2]float64{
	{320, 80},  // nose
	{310, 70},  // left eye
	{330, 70},  // right eye
	{300, 75},  // left ear
	{340, 75},  // right ear
	{300, 150}, // left shoulder
	{340, 150}, // right shoulder
	{280, 230}, // left elbow
	{360, 230}, // right elbow
	{270, 300}, // left wrist
	{370, 300}, // right wrist
	{305, 300}, // left hip
	{335, 300}, // right hip
	{305, 390}, // left knee
	{335, 390}, // right knee
	{305, 460}, // left ankle
	{335, 460}, // right ankle
}

// PoseBuilder bends the upright fixture.
type PoseBuilder struct {
	kps   []l1keypoints.Keypoint
	score float64
}

// NewPoseBuilder starts from the upright pose with every keypoint at
// confidence 0.9.
func NewPoseBuilder() *PoseBuilder {
	kps := make([]l1keypoints.Keypoint, l1keypoints.NumBodyParts)
	for i, xy := range uprightXY {
		kps[i] = l1keypoints.Keypoint{X: xy[0], Y: xy[1], Confidence: 0.9}
	}
	return &PoseBuilder{kps: kps, score: 0.9}
}

// At moves part to (x, y).
func (b *PoseBuilder) At(part l1keypoints.BodyPart, x, y float64) *PoseBuilder {
	b.kps[part].X, b.kps[part].Y = x, y
	return b
}

// X moves part horizontally.
func (b *PoseBuilder) X(part l1keypoints.BodyPart, x float64) *PoseBuilder {
	b.kps[part].X = x
	return b
}

// Y moves part vertically.
func (b *PoseBuilder) Y(part l1keypoints.BodyPart, y float64) *PoseBuilder {
	b.kps[part].Y = y
	return b
}

// Confidence sets one keypoint's confidence.
func (b *PoseBuilder) Confidence(part l1keypoints.BodyPart, c float64) *PoseBuilder {
	b.kps[part].Confidence = c
	return b
}

// AllConfidence sets every keypoint's confidence.
func (b *PoseBuilder) AllConfidence(c float64) *PoseBuilder {
	for i := range b.kps {
		b.kps[i].Confidence = c
	}
	return b
}

// Build returns an independent pose.
func (b *PoseBuilder) Build() l1keypoints.Pose {
	return l1keypoints.NewPose(b.score, b.kps...)
}

// UprightPose is NewPoseBuilder().Build().
func UprightPose() l1keypoints.Pose {
	return NewPoseBuilder().Build()
}
