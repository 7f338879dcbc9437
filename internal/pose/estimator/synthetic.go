package estimator

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// standing is an upright figure centred on x=0, feet at y=0, y down.
var standing = [l1keypoints.NumBodyParts][2]float64{
	l1keypoints.Nose:          {0, -380},
	l1keypoints.LeftEye:       {-8, -390},
	l1keypoints.RightEye:      {8, -390},
	l1keypoints.LeftEar:       {-18, -385},
	l1keypoints.RightEar:      {18, -385},
	l1keypoints.LeftShoulder:  {-40, -310},
	l1keypoints.RightShoulder: {40, -310},
	l1keypoints.LeftElbow:     {-50, -230},
	l1keypoints.RightElbow:    {50, -230},
	l1keypoints.LeftWrist:     {-55, -160},
	l1keypoints.RightWrist:    {55, -160},
	l1keypoints.LeftHip:       {-28, -160},
	l1keypoints.RightHip:      {28, -160},
	l1keypoints.LeftKnee:      {-30, -70},
	l1keypoints.RightKnee:     {30, -70},
	l1keypoints.LeftAnkle:     {-30, 0},
	l1keypoints.RightAnkle:    {30, 0},
}

// SyntheticGenerator produces a swaying figure whose tilt periodically
// crosses the alignment thresholds, with occasional low-confidence frames.
type SyntheticGenerator struct {
	seq     atomic.Uint64
	startNs int64

	Width, Height float64
	FrameRate     float64 // detections per second
	People        int
	SwayPeriod    time.Duration
	MaxTiltPx     float64 // peak left/right height difference
	MaxLeanPx     float64 // peak nose offset from shoulder midpoint
	DropoutRate   float64 // fraction of poses with a weak nose

	clock timeutil.Clock
	rng   *rand.Rand
}

// NewSyntheticGenerator returns a single-person generator for a
// width x height frame.
func NewSyntheticGenerator(width, height int, clock timeutil.Clock) *SyntheticGenerator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SyntheticGenerator{
		startNs:     clock.Now().UnixNano(),
		Width:       float64(width),
		Height:      float64(height),
		FrameRate:   10,
		People:      1,
		SwayPeriod:  8 * time.Second,
		MaxTiltPx:   80,
		MaxLeanPx:   45,
		DropoutRate: 0.05,
		clock:       clock,
		rng:         rand.New(rand.NewSource(clock.Now().UnixNano())),
	}
}

// Seed makes the jitter and dropouts reproducible.
func (g *SyntheticGenerator) Seed(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
}

// Next returns the next message.
func (g *SyntheticGenerator) Next() Message {
	now := g.clock.Now().UnixNano()
	elapsed := float64(now-g.startNs) / 1e9
	phase := 2 * math.Pi * elapsed / g.SwayPeriod.Seconds()

	poses := make([]l1keypoints.Pose, 0, g.People)
	for i := 0; i < g.People; i++ {
		poses = append(poses, g.pose(i, phase+float64(i)*math.Pi/3))
	}
	return Message{
		Type:  TypePoses,
		Seq:   g.seq.Add(1),
		TsNs:  now,
		Poses: PosesToWire(poses),
	}
}

// pose places person i and applies sway at phase. Tilt raises the left
// side and lowers the right, so each symmetric pair differs by
// tilt*spread/maxSpread.
func (g *SyntheticGenerator) pose(i int, phase float64) l1keypoints.Pose {
	scale := g.Height * 0.85 / 400
	cx := g.Width * float64(i+1) / float64(g.People+1)
	floor := g.Height * 0.95

	tilt := g.MaxTiltPx * math.Sin(phase)
	lean := g.MaxLeanPx * math.Sin(phase*0.5)

	kps := make([]l1keypoints.Keypoint, l1keypoints.NumBodyParts)
	for part, xy := range standing {
		x := cx + xy[0]*scale
		y := floor + xy[1]*scale
		switch {
		case xy[0] < 0:
			y -= tilt / 2
		case xy[0] > 0:
			y += tilt / 2
		}
		if l1keypoints.BodyPart(part) == l1keypoints.Nose {
			x += lean
		}
		kps[part] = l1keypoints.Keypoint{
			X:          x + g.rng.NormFloat64(),
			Y:          y + g.rng.NormFloat64(),
			Confidence: 0.75 + 0.2*g.rng.Float64(),
		}
	}
	if g.rng.Float64() < g.DropoutRate {
		kps[l1keypoints.Nose].Confidence = 0.2
	}
	return l1keypoints.NewPose(0.9, kps...)
}

// Run emits a batch every 1/FrameRate until ctx is cancelled.
func (g *SyntheticGenerator) Run(ctx context.Context, onPoses DetectionFunc) error {
	ticker := g.clock.NewTicker(time.Duration(float64(time.Second) / g.FrameRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			onPoses(PosesFromWire(g.Next().Poses))
		}
	}
}
