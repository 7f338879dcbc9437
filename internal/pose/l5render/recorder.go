package l5render

import "gonum.org/v1/gonum/spatial/r2"

// RecordedLine is one Line call.
type RecordedLine struct {
	A, B  r2.Vec
	Style LineStyle
}

// RecordedMarker is one Marker call.
type RecordedMarker struct {
	Center r2.Vec
	Style  MarkerStyle
}

// Recorder is a Surface that keeps every primitive in call order. Ops
// interleaves both kinds so z-order can be checked.
type Recorder struct {
	Lines   []RecordedLine
	Markers []RecordedMarker
	Ops     []string
}

// Line implements Surface.
func (r *Recorder) Line(a, b r2.Vec, style LineStyle) {
	r.Lines = append(r.Lines, RecordedLine{A: a, B: b, Style: style})
	r.Ops = append(r.Ops, "line")
}

// Marker implements Surface.
func (r *Recorder) Marker(center r2.Vec, style MarkerStyle) {
	r.Markers = append(r.Markers, RecordedMarker{Center: center, Style: style})
	r.Ops = append(r.Ops, "marker")
}
