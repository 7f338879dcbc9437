package l3alignment

import "github.com/banshee-data/posture.report/internal/pose/l1keypoints"

// DefaultGateConfidence is the confidence every required keypoint must
// exceed.
const DefaultGateConfidence = 0.5

// gateParts are the keypoints every check depends on being well placed.
var gateParts = []l1keypoints.BodyPart{
	l1keypoints.Nose,
	l1keypoints.LeftShoulder,
	l1keypoints.RightShoulder,
	l1keypoints.LeftHip,
	l1keypoints.RightHip,
}

// Gate decides whether a pose is analysable.
type Gate struct {
	MinConfidence float64
}

// DefaultGate returns a gate at DefaultGateConfidence.
func DefaultGate() Gate {
	return Gate{MinConfidence: DefaultGateConfidence}
}

// IsAnalyzable reports whether nose, both shoulders and both hips all have
// confidence strictly above the gate.
func (g Gate) IsAnalyzable(pose l1keypoints.Pose) bool {
	for _, part := range gateParts {
		if pose.At(part).Confidence <= g.MinConfidence {
			return false
		}
	}
	return true
}

// Failing returns the required parts at or below the gate, for diagnostics.
func (g Gate) Failing(pose l1keypoints.Pose) []l1keypoints.BodyPart {
	var out []l1keypoints.BodyPart
	for _, part := range gateParts {
		if pose.At(part).Confidence <= g.MinConfidence {
			out = append(out, part)
		}
	}
	return out
}
