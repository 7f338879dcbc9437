package l3alignment

import (
	"fmt"
	"image/color"
)

// Region is the fixed identifier of a feedback slot.
type Region string

const (
	RegionShoulder Region = "shoulder-feedback"
	RegionHip      Region = "hip-feedback"
	RegionNeck     Region = "neck-feedback"
	RegionKnee     Region = "knee-feedback"
	RegionAnkle    Region = "ankle-feedback"
	RegionArm      Region = "arm-feedback"
)

// Regions lists every region in analysis order.
var Regions = []Region{RegionShoulder, RegionHip, RegionNeck, RegionKnee, RegionAnkle, RegionArm}

// Valid reports whether r is one of the six fixed regions.
func (r Region) Valid() bool {
	for _, known := range Regions {
		if r == known {
			return true
		}
	}
	return false
}

var (
	Green      = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow     = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Red        = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	DarkOrange = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	Orange     = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

// Hex formats c as a CSS colour.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Verdict is the static text and colour published for one branch of a
// check.
type Verdict struct {
	Message        string
	Recommendation string
	Color          color.RGBA
}

// Result is the outcome of one check on one pose.
type Result struct {
	Region  Region
	Aligned bool
	Verdict
	Metric    float64 // pixels
	Threshold float64 // pixels
}
