package l3alignment

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	kp "github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

const (
	// DefaultSymmetryThreshold is the vertical offset, in pixels, above
	// which a left/right joint pair counts as misaligned.
	DefaultSymmetryThreshold = 50.0
	// DefaultNeckThreshold is the horizontal nose offset from the shoulder
	// midpoint, in pixels, above which the neck counts as misaligned.
	DefaultNeckThreshold = 30.0
)

// Metric derives the scalar a check compares against its threshold.
type Metric func(pose kp.Pose) float64

// Check is one row of the analyzer table.
type Check struct {
	Region     Region
	Metric     Metric
	Threshold  float64
	Aligned    Verdict
	Misaligned Verdict
}

// Evaluate runs the check. Exactly-at-threshold counts as aligned.
func (c Check) Evaluate(pose kp.Pose) Result {
	m := c.Metric(pose)
	misaligned := m > c.Threshold
	v := c.Aligned
	if misaligned {
		v = c.Misaligned
	}
	return Result{
		Region:    c.Region,
		Aligned:   !misaligned,
		Verdict:   v,
		Metric:    m,
		Threshold: c.Threshold,
	}
}

// VerticalOffset measures |a.y - b.y|.
func VerticalOffset(a, b kp.BodyPart) Metric {
	return func(pose kp.Pose) float64 {
		return math.Abs(pose.At(a).Y - pose.At(b).Y)
	}
}

// NeckOffset measures the horizontal distance between the nose and the
// shoulder midpoint.
func NeckOffset(pose kp.Pose) float64 {
	mid := r2.Scale(0.5, r2.Add(pose.At(kp.LeftShoulder).Vec(), pose.At(kp.RightShoulder).Vec()))
	return math.Abs(pose.At(kp.Nose).X - mid.X)
}

// DefaultChecks returns the six-row table in Regions order.
func DefaultChecks() []Check {
	return []Check{
		{
			Region:     RegionShoulder,
			Metric:     VerticalOffset(kp.LeftShoulder, kp.RightShoulder),
			Threshold:  DefaultSymmetryThreshold,
			Aligned:    Verdict{"Good Shoulder Alignment!", "Keep your shoulders relaxed.", Green},
			Misaligned: Verdict{"Shoulder Misalignment Detected!", "Recommendation: Level your shoulders.", Yellow},
		},
		{
			Region:     RegionHip,
			Metric:     VerticalOffset(kp.LeftHip, kp.RightHip),
			Threshold:  DefaultSymmetryThreshold,
			Aligned:    Verdict{"Good Hip Alignment!", "Maintain level hips.", Green},
			Misaligned: Verdict{"Hip Misalignment Detected!", "Recommendation: Straighten your hips.", Red},
		},
		{
			Region:     RegionNeck,
			Metric:     NeckOffset,
			Threshold:  DefaultNeckThreshold,
			Aligned:    Verdict{"Good Neck Alignment!", "Keep your neck aligned with your shoulders.", Green},
			Misaligned: Verdict{"Neck Misalignment Detected!", "Recommendation: Align your neck with your shoulders.", DarkOrange},
		},
		{
			Region:     RegionKnee,
			Metric:     VerticalOffset(kp.LeftKnee, kp.RightKnee),
			Threshold:  DefaultSymmetryThreshold,
			Aligned:    Verdict{"Good Knee Alignment!", "Ensure knees are in line with hips.", Green},
			Misaligned: Verdict{"Knee Misalignment Detected!", "Recommendation: Align your knees.", Orange},
		},
		{
			Region:     RegionAnkle,
			Metric:     VerticalOffset(kp.LeftAnkle, kp.RightAnkle),
			Threshold:  DefaultSymmetryThreshold,
			Aligned:    Verdict{"Good Ankle Alignment!", "Keep your ankles in line with knees.", Green},
			Misaligned: Verdict{"Ankle Misalignment Detected!", "Recommendation: Align your ankles.", Red},
		},
		{
			Region:     RegionArm,
			Metric:     VerticalOffset(kp.LeftElbow, kp.RightElbow),
			Threshold:  DefaultSymmetryThreshold,
			Aligned:    Verdict{"Good Arm Alignment!", "Keep arms relaxed and at sides.", Green},
			Misaligned: Verdict{"Arm Misalignment Detected!", "Recommendation: Adjust arm positions.", Yellow},
		},
	}
}
