package l2ingest

import (
	"sync"
	"time"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// Batch is one completed detection cycle.
type Batch struct {
	Seq        uint64 // 1 for the first stored batch
	ReceivedAt time.Time
	Poses      []l1keypoints.Pose
}

// Empty reports whether the batch holds no people.
func (b Batch) Empty() bool { return len(b.Poses) == 0 }

// Stats counts how the slot was used.
type Stats struct {
	Stored      uint64 `json:"stored"`      // batches written
	Overwritten uint64 `json:"overwritten"` // batches replaced before any read observed them
	Reads       uint64 `json:"reads"`       // Latest calls after initialisation
	Repeats     uint64 `json:"repeats"`     // reads returning a batch already read
}

// Slot is a single-slot "latest value" cell. Store replaces the batch
// wholesale; Latest never observes a partially written batch.
type Slot struct {
	clock timeutil.Clock

	mu    sync.Mutex
	batch Batch
	ready bool // false until the first Store
	read  bool // current batch observed by Latest
	stats Stats
}

// NewSlot creates an empty, uninitialised slot. A nil clock uses the
// real clock.
func NewSlot(clock timeutil.Clock) *Slot {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Slot{clock: clock}
}

// Store replaces the latest batch. The caller must not modify poses after
// handing them over.
func (s *Slot) Store(poses []l1keypoints.Pose) Batch {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready && !s.read {
		s.stats.Overwritten++
	}
	s.stats.Stored++
	s.batch = Batch{
		Seq:        s.stats.Stored,
		ReceivedAt: now,
		Poses:      poses,
	}
	s.ready = true
	s.read = false
	return s.batch
}

// Latest returns the most recent batch. ok is false until the first Store,
// which distinguishes "no detections yet" from "zero people detected".
func (s *Slot) Latest() (b Batch, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return Batch{}, false
	}
	s.stats.Reads++
	if s.read {
		s.stats.Repeats++
	}
	s.read = true
	return s.batch, true
}

// Initialised reports whether any batch has been stored.
func (s *Slot) Initialised() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Stats returns a copy of the usage counters.
func (s *Slot) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
