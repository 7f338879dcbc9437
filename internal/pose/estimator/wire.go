package estimator

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

// Message types.
const (
	TypeSkeleton = "skeleton"
	TypePoses    = "poses"
)

// Message is one worker stream or MQTT message.
type Message struct {
	Type     string     `msgpack:"type"`
	Seq      uint64     `msgpack:"seq"`
	TsNs     int64      `msgpack:"ts_ns"`
	Skeleton [][2]int   `msgpack:"skeleton,omitempty"`
	Poses    []WirePose `msgpack:"poses,omitempty"`
}

// WirePose is a pose as the estimator sends it.
type WirePose struct {
	Score     float64        `msgpack:"score"`
	Keypoints []WireKeypoint `msgpack:"keypoints"`
}

// WireKeypoint is a keypoint as the estimator sends it. Name is
// informational; position in the list decides the body part.
type WireKeypoint struct {
	X          float64 `msgpack:"x"`
	Y          float64 `msgpack:"y"`
	Confidence float64 `msgpack:"confidence"`
	Name       string  `msgpack:"name,omitempty"`
}

// PosesFromWire converts a message's poses into the keypoint model.
// Keypoints beyond the body layout are dropped.
func PosesFromWire(in []WirePose) []l1keypoints.Pose {
	if len(in) == 0 {
		return nil
	}
	out := make([]l1keypoints.Pose, 0, len(in))
	for _, wp := range in {
		n := min(len(wp.Keypoints), l1keypoints.NumBodyParts)
		kps := make([]l1keypoints.Keypoint, n)
		for i := 0; i < n; i++ {
			k := wp.Keypoints[i]
			kps[i] = l1keypoints.Keypoint{X: k.X, Y: k.Y, Confidence: k.Confidence}
		}
		out = append(out, l1keypoints.NewPose(wp.Score, kps...))
	}
	return out
}

// PosesToWire is the inverse of PosesFromWire.
func PosesToWire(in []l1keypoints.Pose) []WirePose {
	out := make([]WirePose, 0, len(in))
	for _, p := range in {
		wp := WirePose{Score: p.Score, Keypoints: make([]WireKeypoint, len(p.Keypoints))}
		for i, k := range p.Keypoints {
			wp.Keypoints[i] = WireKeypoint{X: k.X, Y: k.Y, Confidence: k.Confidence, Name: k.Name}
		}
		out = append(out, wp)
	}
	return out
}

// SkeletonMessage builds the handshake for s.
func SkeletonMessage(s l1keypoints.Skeleton) Message {
	return Message{Type: TypeSkeleton, Skeleton: s.Pairs()}
}

// DecodeMessage unmarshals a single msgpack message body.
func DecodeMessage(b []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode pose message: %w", err)
	}
	switch m.Type {
	case TypeSkeleton, TypePoses:
		return m, nil
	}
	return Message{}, fmt.Errorf("unknown pose message type %q", m.Type)
}

// EncodeMessage marshals a single msgpack message body.
func EncodeMessage(m Message) ([]byte, error) {
	b, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pose message: %w", err)
	}
	return b, nil
}
