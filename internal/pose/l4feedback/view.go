package l4feedback

import (
	"time"

	"github.com/banshee-data/posture.report/internal/pose/l3alignment"
)

// View is the wire form of a region, shared by the HTTP API and MQTT.
type View struct {
	Region         string     `json:"region"`
	Set            bool       `json:"set"`
	Aligned        bool       `json:"aligned"`
	Message        string     `json:"message,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
	Color          string     `json:"color,omitempty"`
	Metric         float64    `json:"metric_px"`
	Threshold      float64    `json:"threshold_px"`
	Revision       uint64     `json:"revision,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// NewView converts a board entry.
func NewView(e Entry) View {
	v := View{Region: string(e.Region), Set: e.Set}
	if !e.Set {
		return v
	}
	v.Aligned = e.Aligned
	v.Message = e.Message
	v.Recommendation = e.Recommendation
	v.Color = l3alignment.Hex(e.Color)
	v.Metric = e.Metric
	v.Threshold = e.Threshold
	v.Revision = e.Revision
	t := e.UpdatedAt
	v.UpdatedAt = &t
	return v
}

// ResultView converts a freshly computed result.
func ResultView(r l3alignment.Result) View {
	return View{
		Region:         string(r.Region),
		Set:            true,
		Aligned:        r.Aligned,
		Message:        r.Message,
		Recommendation: r.Recommendation,
		Color:          l3alignment.Hex(r.Color),
		Metric:         r.Metric,
		Threshold:      r.Threshold,
	}
}
