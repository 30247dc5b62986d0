package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/soocke/leafscan-go/domain/protocol"
)

var (
	BoxColor  = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	TextColor = color.RGBA{A: 0xff}
)

// Surface is what the renderer paints on.
type Surface interface {
	Clear()
	StrokeRect(r Rect, c color.Color, width int)
	FillRect(r Rect, c color.Color)
	Text(x, y float64, s string, c color.Color)
	TextWidth(s string) float64
}

// Renderer repaints the overlay whenever its inputs change. Every draw
// clears the surface first.
type Renderer struct {
	mu      sync.Mutex
	surface Surface
	dets    []protocol.Detection
	natural image.Point
	display image.Point
}

// NewRenderer returns a renderer for surface at the given display size.
func NewRenderer(surface Surface, display image.Point) *Renderer {
	return &Renderer{surface: surface, display: display}
}

// SetDetections replaces the detection list and repaints.
func (r *Renderer) SetDetections(dets []protocol.Detection) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.dets = append(r.dets[:0:0], dets...)
	r.mu.Unlock()
	r.Draw()
}

// ImageLoaded records the source image's natural size and repaints.
func (r *Renderer) ImageLoaded(natural image.Point) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.natural = natural
	r.mu.Unlock()
	r.Draw()
}

// Resize records a new display size and repaints.
func (r *Renderer) Resize(display image.Point) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.display = display
	r.mu.Unlock()
	r.Draw()
}

// Boxes returns the current layout.
func (r *Renderer) Boxes() []Box {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Layout(r.dets, r.natural, r.display)
}

// Draw clears the surface and paints every box with its label tag.
func (r *Renderer) Draw() {
	if r == nil || r.surface == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surface.Clear()
	for _, b := range Layout(r.dets, r.natural, r.display) {
		r.surface.StrokeRect(b.Rect, BoxColor, LineWidth)
		r.surface.FillRect(Tag(b.Rect, r.surface.TextWidth(b.Label)), BoxColor)
		r.surface.Text(b.Rect.X+TagPadding, b.Rect.Y-TextBaseline, b.Label, TextColor)
	}
}

// Raster is a Surface over an RGBA image. Clear restores the base frame.
type Raster struct {
	base *image.RGBA
	dst  *image.RGBA
	face font.Face
}

// NewRaster returns a raster surface that paints over a copy of base.
func NewRaster(base *image.RGBA) *Raster {
	if base == nil {
		base = image.NewRGBA(image.Rect(0, 0, FallbackWidth, FallbackHeight))
	}
	dst := image.NewRGBA(base.Bounds())
	draw.Draw(dst, dst.Bounds(), base, base.Bounds().Min, draw.Src)
	return &Raster{base: base, dst: dst, face: basicfont.Face7x13}
}

// Image returns the painted image.
func (s *Raster) Image() *image.RGBA { return s.dst }

func (s *Raster) Clear() {
	draw.Draw(s.dst, s.dst.Bounds(), s.base, s.base.Bounds().Min, draw.Src)
}

func (s *Raster) StrokeRect(r Rect, c color.Color, width int) {
	if width < 1 {
		width = 1
	}
	b := r.Bounds()
	lo, hi := width/2, (width+1)/2
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(b.Min.X-lo, b.Min.Y-lo, b.Max.X+hi, b.Min.Y+hi), // top
		image.Rect(b.Min.X-lo, b.Max.Y-lo, b.Max.X+hi, b.Max.Y+hi), // bottom
		image.Rect(b.Min.X-lo, b.Min.Y-lo, b.Min.X+hi, b.Max.Y+hi), // left
		image.Rect(b.Max.X-lo, b.Min.Y-lo, b.Max.X+hi, b.Max.Y+hi), // right
	}
	for _, e := range edges {
		draw.Draw(s.dst, e.Intersect(s.dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

func (s *Raster) FillRect(r Rect, c color.Color) {
	draw.Draw(s.dst, r.Bounds().Intersect(s.dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *Raster) Text(x, y float64, str string, c color.Color) {
	d := font.Drawer{
		Dst:  s.dst,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(str)
}

func (s *Raster) TextWidth(str string) float64 {
	return float64(font.MeasureString(s.face, str)) / 64
}
