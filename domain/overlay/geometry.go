// Package overlay maps detection boxes from source-image pixels into the
// displayed image's pixels and paints them.
package overlay

import (
	"fmt"
	"image"
	"math"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// Native resolution assumed until the image's natural size is known.
const (
	FallbackWidth  = 640
	FallbackHeight = 480
)

// Label tag geometry, in display pixels.
const (
	LineWidth    = 2
	TagHeight    = 20
	TagPadding   = 5
	TextBaseline = 5
)

// Rect is an axis-aligned rectangle in display space.
type Rect struct {
	X, Y, W, H float64
}

// Bounds rounds r to integer pixels.
func (r Rect) Bounds() image.Rectangle {
	x0, y0 := int(math.Round(r.X)), int(math.Round(r.Y))
	return image.Rect(x0, y0, int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)))
}

// Scale returns the per-axis factors from natural to display size. A zero
// natural size falls back to FallbackWidth x FallbackHeight.
func Scale(natural, display image.Point) (sx, sy float64) {
	nw, nh := natural.X, natural.Y
	if nw <= 0 {
		nw = FallbackWidth
	}
	if nh <= 0 {
		nh = FallbackHeight
	}
	return float64(display.X) / float64(nw), float64(display.Y) / float64(nh)
}

// Transform maps one detection into display space.
func Transform(d protocol.Detection, sx, sy float64) Rect {
	return Rect{
		X: d.X1 * sx,
		Y: d.Y1 * sy,
		W: (d.X2 - d.X1) * sx,
		H: (d.Y2 - d.Y1) * sy,
	}
}

// Label is the tag text for d, confidence as a rounded percentage.
func Label(d protocol.Detection) string {
	return fmt.Sprintf("Leaf %d%%", int(math.Round(d.Confidence*100)))
}

// Box is one laid-out overlay element.
type Box struct {
	Rect  Rect
	Label string
}

// Layout maps every detection into display space.
func Layout(dets []protocol.Detection, natural, display image.Point) []Box {
	sx, sy := Scale(natural, display)
	out := make([]Box, 0, len(dets))
	for _, d := range dets {
		out = append(out, Box{Rect: Transform(d, sx, sy), Label: Label(d)})
	}
	return out
}

// Tag returns the filled label rectangle above box for a label textWidth
// pixels wide.
func Tag(box Rect, textWidth float64) Rect {
	return Rect{X: box.X, Y: box.Y - TagHeight, W: textWidth + 2*TagPadding, H: TagHeight}
}
