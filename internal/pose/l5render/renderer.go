package l5render

import (
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

// DefaultMinConfidence is the render floor for bones and markers.
const DefaultMinConfidence = 0.1

// LineStyle is a bone stroke.
type LineStyle struct {
	Color color.Color
	Width float64 // pixels
}

// MarkerStyle is a filled keypoint disc.
type MarkerStyle struct {
	Color    color.Color
	Diameter float64 // pixels
}

var (
	DefaultBoneStyle   = LineStyle{Color: color.RGBA{R: 255, A: 255}, Width: 2}
	DefaultMarkerStyle = MarkerStyle{Color: color.RGBA{G: 255, A: 255}, Diameter: 10}
)

// Surface receives drawing primitives in capture pixel coordinates
// (origin top-left, y down).
type Surface interface {
	Line(a, b r2.Vec, style LineStyle)
	Marker(center r2.Vec, style MarkerStyle)
}

// SkeletonRenderer draws the bones of a pose.
type SkeletonRenderer struct {
	Skeleton      l1keypoints.Skeleton
	MinConfidence float64
	Style         LineStyle
}

// Draw strokes every bone whose two endpoints are both above the floor and
// returns how many were drawn.
func (r SkeletonRenderer) Draw(s Surface, pose l1keypoints.Pose) int {
	drawn := 0
	for _, bone := range r.Skeleton.Bones() {
		a, b := pose.At(bone.A), pose.At(bone.B)
		if a.Confidence > r.MinConfidence && b.Confidence > r.MinConfidence {
			s.Line(a.Vec(), b.Vec(), r.Style)
			drawn++
		}
	}
	return drawn
}

// KeypointRenderer draws a marker per keypoint.
type KeypointRenderer struct {
	MinConfidence float64
	Style         MarkerStyle
}

// Draw places a marker on every keypoint above the floor and returns how
// many were drawn.
func (r KeypointRenderer) Draw(s Surface, pose l1keypoints.Pose) int {
	drawn := 0
	for _, kp := range pose.Keypoints {
		if kp.Confidence > r.MinConfidence {
			s.Marker(kp.Vec(), r.Style)
			drawn++
		}
	}
	return drawn
}
