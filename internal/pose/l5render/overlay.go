package l5render

import (
	"image"
	"image/color"
	imgdraw "image/draw"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

// surfaceDPI makes one vg point one pixel (vg.Inch is 72 points).
const surfaceDPI = 72

// ImageSurface draws onto a raster canvas in capture pixel coordinates.
type ImageSurface struct {
	canvas *vgimg.Canvas
	dc     draw.Canvas
	height float64
}

// NewImageSurface starts a canvas with background copied in. A nil
// background yields a black width x height canvas; otherwise the canvas
// takes the background's size.
func NewImageSurface(background image.Image, width, height int) *ImageSurface {
	bounds := image.Rect(0, 0, width, height)
	if background != nil {
		bounds = image.Rect(0, 0, background.Bounds().Dx(), background.Bounds().Dy())
	}
	c := vgimg.NewWith(vgimg.UseDPI(surfaceDPI), vgimg.UseImage(image.NewRGBA(bounds)))

	// NewWith fills the canvas white; the frame goes on top of that.
	dst := c.Image()
	if background != nil {
		imgdraw.Draw(dst, bounds, background, background.Bounds().Min, imgdraw.Src)
	} else {
		imgdraw.Draw(dst, bounds, image.NewUniform(color.Black), image.Point{}, imgdraw.Src)
	}

	return &ImageSurface{
		canvas: c,
		dc:     draw.New(c),
		height: float64(bounds.Dy()),
	}
}

// point flips capture coordinates (y down) into canvas coordinates (y up).
func (s *ImageSurface) point(v r2.Vec) vg.Point {
	return vg.Point{X: vg.Length(v.X), Y: vg.Length(s.height - v.Y)}
}

// Line implements Surface.
func (s *ImageSurface) Line(a, b r2.Vec, style LineStyle) {
	pa, pb := s.point(a), s.point(b)
	s.dc.StrokeLine2(draw.LineStyle{Color: style.Color, Width: vg.Length(style.Width)}, pa.X, pa.Y, pb.X, pb.Y)
}

// Marker implements Surface.
func (s *ImageSurface) Marker(center r2.Vec, style MarkerStyle) {
	s.dc.DrawGlyph(draw.GlyphStyle{
		Color:  style.Color,
		Radius: vg.Length(style.Diameter / 2),
		Shape:  draw.CircleGlyph{},
	}, s.point(center))
}

// Image returns the composed frame.
func (s *ImageSurface) Image() image.Image {
	return s.canvas.Image()
}

// RenderStats counts what one overlay pass drew.
type RenderStats struct {
	Poses   int
	Bones   int
	Markers int
}

// Overlay composes the background, bones and markers for a batch.
type Overlay struct {
	Skeleton  SkeletonRenderer
	Keypoints KeypointRenderer

	// Width and Height size the canvas when no background frame is given.
	Width, Height int
}

// NewOverlay returns an overlay with the default styles and floor.
func NewOverlay(skeleton l1keypoints.Skeleton, width, height int) *Overlay {
	return &Overlay{
		Skeleton: SkeletonRenderer{
			Skeleton:      skeleton,
			MinConfidence: DefaultMinConfidence,
			Style:         DefaultBoneStyle,
		},
		Keypoints: KeypointRenderer{
			MinConfidence: DefaultMinConfidence,
			Style:         DefaultMarkerStyle,
		},
		Width:  width,
		Height: height,
	}
}

// Draw renders every pose onto s, bones before markers per pose.
func (o *Overlay) Draw(s Surface, poses []l1keypoints.Pose) RenderStats {
	stats := RenderStats{Poses: len(poses)}
	for _, p := range poses {
		stats.Bones += o.Skeleton.Draw(s, p)
		stats.Markers += o.Keypoints.Draw(s, p)
	}
	return stats
}

// Render draws background then poses and returns the frame.
func (o *Overlay) Render(background image.Image, poses []l1keypoints.Pose) (image.Image, RenderStats) {
	s := NewImageSurface(background, o.Width, o.Height)
	stats := o.Draw(s, poses)
	return s.Image(), stats
}
