// Package visualiser streams per-tick posture feedback to remote viewers
// over gRPC.
//
// The service is posture.v1.FeedbackService with one server-streaming
// method, StreamFeedback. Requests and updates travel as
// google.protobuf.Struct so viewers need no generated stubs; Update and
// Request define the field layout.
package visualiser

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
	"github.com/banshee-data/posture.report/internal/pose/l4feedback"
	"github.com/banshee-data/posture.report/internal/pose/pipeline"
)

// Update is one streamed tick.
type Update struct {
	SessionID string
	Tick      uint64
	At        time.Time
	State     string
	BatchSeq  uint64
	Poses     int
	Analysed  int
	Skipped   int
	Results   []l4feedback.View
}

// NewUpdate converts a tick report.
func NewUpdate(r *pipeline.TickReport) *Update {
	u := &Update{
		SessionID: r.SessionID,
		Tick:      r.Tick,
		At:        r.At,
		State:     r.State.String(),
		BatchSeq:  r.BatchSeq,
		Poses:     r.Poses,
		Analysed:  r.Analysed,
		Skipped:   r.Skipped,
		Results:   make([]l4feedback.View, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		u.Results = append(u.Results, l4feedback.ResultView(res))
	}
	return u
}

// Filter returns a copy holding only results for regions. An empty set
// keeps everything.
func (u *Update) Filter(regions map[l3alignment.Region]bool) *Update {
	if len(regions) == 0 {
		return u
	}
	out := *u
	out.Results = make([]l4feedback.View, 0, len(u.Results))
	for _, v := range u.Results {
		if regions[l3alignment.Region(v.Region)] {
			out.Results = append(out.Results, v)
		}
	}
	return &out
}

// ToStruct encodes the update for the wire.
func (u *Update) ToStruct() (*structpb.Struct, error) {
	results := make([]interface{}, 0, len(u.Results))
	for _, v := range u.Results {
		results = append(results, map[string]interface{}{
			"region":         v.Region,
			"aligned":        v.Aligned,
			"message":        v.Message,
			"recommendation": v.Recommendation,
			"color":          v.Color,
			"metric_px":      v.Metric,
			"threshold_px":   v.Threshold,
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"session_id": u.SessionID,
		"tick":       float64(u.Tick),
		"at":         u.At.Format(time.RFC3339Nano),
		"state":      u.State,
		"batch_seq":  float64(u.BatchSeq),
		"poses":      u.Poses,
		"analysed":   u.Analysed,
		"skipped":    u.Skipped,
		"results":    results,
	})
}

// UpdateFromStruct decodes an update received from the wire.
func UpdateFromStruct(s *structpb.Struct) (*Update, error) {
	f := s.GetFields()
	u := &Update{
		SessionID: f["session_id"].GetStringValue(),
		Tick:      uint64(f["tick"].GetNumberValue()),
		State:     f["state"].GetStringValue(),
		BatchSeq:  uint64(f["batch_seq"].GetNumberValue()),
		Poses:     int(f["poses"].GetNumberValue()),
		Analysed:  int(f["analysed"].GetNumberValue()),
		Skipped:   int(f["skipped"].GetNumberValue()),
	}
	if u.State == "" {
		return nil, fmt.Errorf("feedback update missing state")
	}
	at, err := time.Parse(time.RFC3339Nano, f["at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("feedback update has bad timestamp: %w", err)
	}
	u.At = at
	for i, rv := range f["results"].GetListValue().GetValues() {
		rf := rv.GetStructValue().GetFields()
		if rf == nil {
			return nil, fmt.Errorf("feedback update result %d is not an object", i)
		}
		u.Results = append(u.Results, l4feedback.View{
			Region:         rf["region"].GetStringValue(),
			Set:            true,
			Aligned:        rf["aligned"].GetBoolValue(),
			Message:        rf["message"].GetStringValue(),
			Recommendation: rf["recommendation"].GetStringValue(),
			Color:          rf["color"].GetStringValue(),
			Metric:         rf["metric_px"].GetNumberValue(),
			Threshold:      rf["threshold_px"].GetNumberValue(),
		})
	}
	return u, nil
}

// Request selects what a viewer receives.
type Request struct {
	Regions []l3alignment.Region
}

// ToStruct encodes the request.
func (r Request) ToStruct() (*structpb.Struct, error) {
	regions := make([]interface{}, 0, len(r.Regions))
	for _, reg := range r.Regions {
		regions = append(regions, string(reg))
	}
	return structpb.NewStruct(map[string]interface{}{"regions": regions})
}

// RequestFromStruct decodes and validates a request.
func RequestFromStruct(s *structpb.Struct) (Request, error) {
	var r Request
	for _, v := range s.GetFields()["regions"].GetListValue().GetValues() {
		reg := l3alignment.Region(v.GetStringValue())
		if !reg.Valid() {
			return Request{}, fmt.Errorf("%w: %q", l4feedback.ErrUnknownRegion, reg)
		}
		r.Regions = append(r.Regions, reg)
	}
	return r, nil
}

func (r Request) regionSet() map[l3alignment.Region]bool {
	if len(r.Regions) == 0 {
		return nil
	}
	set := make(map[l3alignment.Region]bool, len(r.Regions))
	for _, reg := range r.Regions {
		set[reg] = true
	}
	return set
}
