package l4feedback

import (
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// ErrUnknownRegion is returned when a result names a region outside the
// fixed six.
var ErrUnknownRegion = errors.New("unknown feedback region")

// Sink publishes one alignment result to its named region.
type Sink interface {
	Publish(r l3alignment.Result) error
}

// Entry is the current content of one region.
type Entry struct {
	l3alignment.Result
	Set       bool // false until the first publish
	Revision  uint64
	UpdatedAt time.Time
}

// HTML renders the entry the way the feedback panel shows it: a coloured
// headline followed by the recommendation.
func (e Entry) HTML() string {
	if !e.Set {
		return ""
	}
	return fmt.Sprintf(`<p style="color:%s;">%s</p><p>%s</p>`,
		l3alignment.Hex(e.Color), html.EscapeString(e.Message), html.EscapeString(e.Recommendation))
}

// Board is the in-memory set of six feedback regions.
type Board struct {
	clock timeutil.Clock

	mu       sync.RWMutex
	entries  map[l3alignment.Region]Entry
	revision uint64
}

// NewBoard creates a board with every region unset.
func NewBoard(clock timeutil.Clock) *Board {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	entries := make(map[l3alignment.Region]Entry, len(l3alignment.Regions))
	for _, r := range l3alignment.Regions {
		entries[r] = Entry{Result: l3alignment.Result{Region: r}}
	}
	return &Board{clock: clock, entries: entries}
}

// Publish overwrites the region named by r.
func (b *Board) Publish(r l3alignment.Result) error {
	if !r.Region.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, r.Region)
	}
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.revision++
	b.entries[r.Region] = Entry{
		Result:    r,
		Set:       true,
		Revision:  b.revision,
		UpdatedAt: now,
	}
	return nil
}

// Get returns the current content of region.
func (b *Board) Get(region l3alignment.Region) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[region]
	return e, ok
}

// Snapshot returns every region in analysis order.
func (b *Board) Snapshot() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, 0, len(l3alignment.Regions))
	for _, r := range l3alignment.Regions {
		out = append(out, b.entries[r])
	}
	return out
}

// Revision increases by one on every publish.
func (b *Board) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// MultiSink fans a result out to several sinks. Every sink is called even
// when an earlier one fails.
type MultiSink []Sink

// Publish implements Sink.
func (m MultiSink) Publish(r l3alignment.Result) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(r l3alignment.Result) error

// Publish implements Sink.
func (f SinkFunc) Publish(r l3alignment.Result) error { return f(r) }
