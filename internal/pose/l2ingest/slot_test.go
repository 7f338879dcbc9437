package l2ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

func onePose(conf float64) []l1keypoints.Pose {
	return []l1keypoints.Pose{l1keypoints.NewPose(conf, l1keypoints.Keypoint{Confidence: conf})}
}

func TestSlot_Uninitialised(t *testing.T) {
	t.Parallel()
	s := NewSlot(nil)

	_, ok := s.Latest()
	assert.False(t, ok)
	assert.False(t, s.Initialised())
	assert.Equal(t, Stats{}, s.Stats())
}

func TestSlot_EmptyBatchIsInitialised(t *testing.T) {
	t.Parallel()
	s := NewSlot(nil)
	s.Store(nil)

	b, ok := s.Latest()
	require.True(t, ok)
	assert.True(t, b.Empty())
	assert.Equal(t, uint64(1), b.Seq)
}

func TestSlot_RepeatAndOverwrite(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s := NewSlot(clock)

	first := s.Store(onePose(0.9))
	assert.Equal(t, start, first.ReceivedAt)

	// Render faster than detection: same batch on two ticks.
	b1, _ := s.Latest()
	b2, _ := s.Latest()
	assert.Equal(t, b1.Seq, b2.Seq)

	// Detection faster than render: batch 2 is never observed.
	clock.Advance(10 * time.Millisecond)
	s.Store(onePose(0.8))
	s.Store(onePose(0.7))
	b3, _ := s.Latest()
	assert.Equal(t, uint64(3), b3.Seq)
	assert.Equal(t, 0.7, b3.Poses[0].Score)
	assert.Equal(t, start.Add(10*time.Millisecond), b3.ReceivedAt)

	assert.Equal(t, Stats{Stored: 3, Overwritten: 1, Reads: 3, Repeats: 1}, s.Stats())
}

func TestSlot_ConcurrentStoreAndRead(t *testing.T) {
	t.Parallel()
	s := NewSlot(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Store(onePose(float64(i) / 500))
		}
	}()
	go func() {
		defer wg.Done()
		var last uint64
		for i := 0; i < 500; i++ {
			if b, ok := s.Latest(); ok {
				assert.GreaterOrEqual(t, b.Seq, last)
				assert.Len(t, b.Poses, 1)
				last = b.Seq
			}
		}
	}()
	wg.Wait()
	assert.Equal(t, uint64(500), s.Stats().Stored)
}
