package l1keypoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyPartLayout(t *testing.T) {
	t.Parallel()

	cases := map[BodyPart]int{
		Nose:          0,
		LeftShoulder:  5,
		RightShoulder: 6,
		LeftElbow:     7,
		RightElbow:    8,
		LeftHip:       11,
		RightHip:      12,
		LeftKnee:      13,
		RightKnee:     14,
		LeftAnkle:     15,
		RightAnkle:    16,
	}
	for part, idx := range cases {
		assert.Equal(t, idx, int(part), part.String())
	}
	assert.Equal(t, "left_shoulder", LeftShoulder.String())
	assert.Equal(t, "BodyPart(17)", BodyPart(17).String())
	assert.False(t, BodyPart(-1).Valid())
}

func TestPoseAt(t *testing.T) {
	t.Parallel()

	t.Run("returns keypoint by part", func(t *testing.T) {
		p := NewPose(0.9,
			Keypoint{X: 1, Y: 2, Confidence: 0.8},
			Keypoint{X: 3, Y: 4, Confidence: 0.7},
		)
		kp := p.At(Nose)
		assert.Equal(t, Nose, kp.Part)
		assert.Equal(t, "nose", kp.Name)
		assert.Equal(t, 0.8, kp.Confidence)
		assert.Equal(t, 3.0, p.At(LeftEye).Vec().X)
	})

	t.Run("short pose yields zero confidence", func(t *testing.T) {
		p := NewPose(0.5, Keypoint{Confidence: 1})
		kp := p.At(RightAnkle)
		assert.Equal(t, RightAnkle, kp.Part)
		assert.Zero(t, kp.Confidence)
	})
}

func TestSkeleton(t *testing.T) {
	t.Parallel()

	s := DefaultSkeleton()
	require.Equal(t, 16, s.Len())

	bones := s.Bones()
	bones[0] = Bone{A: RightAnkle, B: RightAnkle}
	assert.Equal(t, Bone{A: Nose, B: LeftEye}, s.Bones()[0], "Bones must return a copy")

	pairs := s.Pairs()
	rebuilt, err := NewSkeleton(pairs)
	require.NoError(t, err)
	assert.Equal(t, s.Bones(), rebuilt.Bones())

	_, err = NewSkeleton([][2]int{{0, 17}})
	assert.Error(t, err)
}
