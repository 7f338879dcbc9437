package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/posture.report/internal/config"
	"github.com/banshee-data/posture.report/internal/monitoring"
	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
	"github.com/banshee-data/posture.report/internal/pose/l2ingest"
	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
	"github.com/banshee-data/posture.report/internal/pose/l4feedback"
	"github.com/banshee-data/posture.report/internal/pose/l5render"
	"github.com/banshee-data/posture.report/internal/timeutil"
)

// TickState describes what the slot held when a tick read it.
type TickState int

const (
	// StateUninitialised: no detection has completed yet.
	StateUninitialised TickState = iota
	// StateEmpty: the latest detection found nobody.
	StateEmpty
	// StateActive: the latest detection holds at least one pose.
	StateActive
)

func (s TickState) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateEmpty:
		return "empty"
	case StateActive:
		return "active"
	}
	return fmt.Sprintf("TickState(%d)", int(s))
}

// TickReport is everything one render tick did.
type TickReport struct {
	SessionID string
	Tick      uint64
	At        time.Time
	State     TickState
	BatchSeq  uint64
	Poses     int
	Analysed  int // poses that passed the gate
	Skipped   int // poses rejected by the gate
	// Results holds every published result, pose by pose in batch order.
	Results    []l3alignment.Result
	SinkErrors int
	Render     l5render.RenderStats
	Frame      image.Image // nil when rendering is disabled
}

// TickObserver receives every tick report on the render goroutine. It must
// not block.
type TickObserver interface {
	ObserveTick(r *TickReport)
}

// ObserverFunc adapts a function to TickObserver.
type ObserverFunc func(r *TickReport)

// ObserveTick implements TickObserver.
func (f ObserverFunc) ObserveTick(r *TickReport) { f(r) }

// FrameSource supplies the current capture frame. Returning nil renders
// onto a blank canvas.
type FrameSource interface {
	Frame() image.Image
}

// Config holds a session's collaborators.
type Config struct {
	// Gate and Analyzer default to the stock gate and thresholds when nil.
	Gate     *l3alignment.Gate
	Analyzer *l3alignment.Analyzer
	Sink     l4feedback.Sink
	// Overlay, when nil, disables rendering.
	Overlay       *l5render.Overlay
	Clock         timeutil.Clock
	FrameInterval time.Duration
	// SessionID defaults to a random UUID.
	SessionID string
}

// Session is the per-capture-session pipeline state.
type Session struct {
	id       string
	cfg      Config
	slot     *l2ingest.Slot
	gate     l3alignment.Gate
	analyzer *l3alignment.Analyzer

	ticks      atomic.Uint64
	sinkErrors atomic.Uint64

	observersMu sync.RWMutex
	observers   []TickObserver
}

// NewSession validates cfg and creates a session with an empty slot.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("session requires a feedback sink")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = time.Second / 30
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	gate := l3alignment.DefaultGate()
	if cfg.Gate != nil {
		gate = *cfg.Gate
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		var err error
		if analyzer, err = l3alignment.NewAnalyzer(nil); err != nil {
			return nil, err
		}
	}
	return &Session{
		id:       cfg.SessionID,
		cfg:      cfg,
		slot:     l2ingest.NewSlot(cfg.Clock),
		gate:     gate,
		analyzer: analyzer,
	}, nil
}

// NewSessionFromConfig wires a session from tuning values.
func NewSessionFromConfig(pc *config.PostureConfig, skeleton l1keypoints.Skeleton, sink l4feedback.Sink, clock timeutil.Clock) (*Session, error) {
	analyzer, err := l3alignment.NewAnalyzer(pc.GetThresholds())
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer: %w", err)
	}
	width, height := pc.GetCanvasSize()
	overlay := l5render.NewOverlay(skeleton, width, height)
	overlay.Skeleton.MinConfidence = pc.GetRenderMinConfidence()
	overlay.Skeleton.Style.Width = pc.GetBoneWidthPx()
	overlay.Keypoints.MinConfidence = pc.GetRenderMinConfidence()
	overlay.Keypoints.Style.Diameter = pc.GetMarkerDiameterPx()

	return NewSession(Config{
		Gate:          &l3alignment.Gate{MinConfidence: pc.GetGateMinConfidence()},
		Analyzer:      analyzer,
		Sink:          sink,
		Overlay:       overlay,
		Clock:         clock,
		FrameInterval: pc.GetFrameInterval(),
	})
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Analyzer returns the session's check table owner.
func (s *Session) Analyzer() *l3alignment.Analyzer { return s.analyzer }

// AddObserver registers o for every subsequent tick.
func (s *Session) AddObserver(o TickObserver) {
	s.observersMu.Lock()
	s.observers = append(s.observers, o)
	s.observersMu.Unlock()
}

// OnDetection is the estimator's detection-complete callback. It replaces
// the latest batch and does nothing else.
func (s *Session) OnDetection(poses []l1keypoints.Pose) l2ingest.Batch {
	b := s.slot.Store(poses)
	monitoring.Tracef("[Session] batch %d stored: %d poses", b.Seq, len(poses))
	return b
}

// Tick runs one render tick against the latest batch.
func (s *Session) Tick(background image.Image) *TickReport {
	report := &TickReport{
		SessionID: s.id,
		Tick:      s.ticks.Add(1),
		At:        s.cfg.Clock.Now(),
	}

	batch, ok := s.slot.Latest()
	switch {
	case !ok:
		report.State = StateUninitialised
	case batch.Empty():
		report.State = StateEmpty
		report.BatchSeq = batch.Seq
	default:
		report.State = StateActive
		report.BatchSeq = batch.Seq
		report.Poses = len(batch.Poses)
	}

	for i, pose := range batch.Poses {
		if !s.gate.IsAnalyzable(pose) {
			report.Skipped++
			monitoring.Tracef("[Session] tick %d pose %d skipped: %v at or below %.2f",
				report.Tick, i, s.gate.Failing(pose), s.gate.MinConfidence)
			continue
		}
		report.Analysed++
		for _, r := range s.analyzer.Analyze(pose) {
			if err := s.cfg.Sink.Publish(r); err != nil {
				report.SinkErrors++
				if n := s.sinkErrors.Add(1); n == 1 || n%100 == 0 {
					monitoring.Opsf("[Session] feedback publish failed (%d total): %v", n, err)
				}
			}
			report.Results = append(report.Results, r)
		}
	}

	if s.cfg.Overlay != nil {
		report.Frame, report.Render = s.cfg.Overlay.Render(background, batch.Poses)
	}

	monitoring.Tracef("[Session] tick %d state=%s batch=%d poses=%d analysed=%d skipped=%d",
		report.Tick, report.State, report.BatchSeq, report.Poses, report.Analysed, report.Skipped)

	s.observersMu.RLock()
	observers := s.observers
	s.observersMu.RUnlock()
	for _, o := range observers {
		o.ObserveTick(report)
	}
	return report
}

// Run ticks at the configured frame interval until ctx is cancelled.
// frames may be nil.
func (s *Session) Run(ctx context.Context, frames FrameSource) error {
	ticker := s.cfg.Clock.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()

	monitoring.Diagf("[Session] %s render loop started, interval=%s", s.id, s.cfg.FrameInterval)
	for {
		select {
		case <-ctx.Done():
			monitoring.Diagf("[Session] %s render loop stopped after %d ticks", s.id, s.ticks.Load())
			return ctx.Err()
		case <-ticker.C():
			var bg image.Image
			if frames != nil {
				bg = frames.Frame()
			}
			s.Tick(bg)
		}
	}
}

// Status summarises the session for monitoring.
type Status struct {
	SessionID   string         `json:"session_id"`
	Initialised bool           `json:"initialised"`
	Ticks       uint64         `json:"ticks"`
	SinkErrors  uint64         `json:"sink_errors"`
	Ingest      l2ingest.Stats `json:"ingest"`
}

// Status returns current counters.
func (s *Session) Status() Status {
	return Status{
		SessionID:   s.id,
		Initialised: s.slot.Initialised(),
		Ticks:       s.ticks.Load(),
		SinkErrors:  s.sinkErrors.Load(),
		Ingest:      s.slot.Stats(),
	}
}
