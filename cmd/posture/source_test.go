package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/pose/estimator"
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/testutil"
)

func TestOpenSource(t *testing.T) {
	opts := sourceOptions{config: config.DefaultPostureConfig(), people: 2}

	src, err := openSource("synthetic", opts)
	require.NoError(t, err)
	_, ok := src.Skeleton()
	assert.False(t, ok)
	assert.Equal(t, 2, src.(syntheticSource).gen.People)

	_, err = openSource("mqtt", opts)
	assert.ErrorContains(t, err, "-mqtt-broker")

	_, err = openSource("webcam", opts)
	assert.Error(t, err)
}

func TestWorkerSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poses.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	skel, err := l1keypoints.NewSkeleton([][2]int{{5, 6}, {11, 12}})
	require.NoError(t, err)
	enc := estimator.NewEncoder(f)
	require.NoError(t, enc.Encode(estimator.SkeletonMessage(skel)))
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, enc.Encode(estimator.Message{
			Type:  estimator.TypePoses,
			Seq:   seq,
			Poses: estimator.PosesToWire([]l1keypoints.Pose{testutil.UprightPose()}),
		}))
	}
	require.NoError(t, f.Close())

	src, err := openSource("worker", sourceOptions{workerAddr: path, config: config.DefaultPostureConfig()})
	require.NoError(t, err)
	defer src.Close()

	got, ok := src.Skeleton()
	require.True(t, ok)
	assert.Equal(t, 2, got.Len())

	batches := 0
	require.NoError(t, src.Run(context.Background(), func([]l1keypoints.Pose) { batches++ }))
	assert.Equal(t, 3, batches)

	_, err = openWorker(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}

func TestLoadBackground(t *testing.T) {
	fs, err := loadBackground("")
	require.NoError(t, err)
	assert.Nil(t, fs)

	path := filepath.Join(t.TempDir(), "bg.png")
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	img.Set(1, 1, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	fs, err = loadBackground(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 9), fs.Frame().Bounds())

	_, err = loadBackground(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}
