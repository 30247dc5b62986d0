package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/soocke/leafscan-go/domain/protocol"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTransform_ScalesEachAxis(t *testing.T) {
	cases := []struct {
		d                protocol.Detection
		natural, display image.Point
	}{
		{protocol.Detection{X1: 100, Y1: 50, X2: 300, Y2: 250}, image.Pt(1280, 960), image.Pt(640, 360)},
		{protocol.Detection{X1: 0, Y1: 0, X2: 640, Y2: 480}, image.Pt(640, 480), image.Pt(640, 480)},
		{protocol.Detection{X1: 10.5, Y1: 3, X2: 20, Y2: 7.25}, image.Pt(320, 240), image.Pt(1000, 700)},
	}
	for _, c := range cases {
		sx, sy := Scale(c.natural, c.display)
		got := Transform(c.d, sx, sy)
		W, H := float64(c.display.X), float64(c.display.Y)
		Nw, Nh := float64(c.natural.X), float64(c.natural.Y)
		want := Rect{
			X: c.d.X1 * W / Nw,
			Y: c.d.Y1 * H / Nh,
			W: (c.d.X2 - c.d.X1) * W / Nw,
			H: (c.d.Y2 - c.d.Y1) * H / Nh,
		}
		if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.W, want.W) || !near(got.H, want.H) {
			t.Fatalf("got %+v want %+v", got, want)
		}
	}
}

func TestScale_FallsBackBeforeImageLoad(t *testing.T) {
	sx, sy := Scale(image.Point{}, image.Pt(320, 240))
	if sx != 0.5 || sy != 0.5 {
		t.Fatalf("expected 640x480 fallback, got %v %v", sx, sy)
	}
}

func TestLabel_RoundsPercent(t *testing.T) {
	if got := Label(protocol.Detection{Confidence: 0.926}); got != "Leaf 93%" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Label(protocol.Detection{Confidence: 1}); got != "Leaf 100%" {
		t.Fatalf("unexpected label %q", got)
	}
}

type recordingSurface struct {
	clears  int
	strokes []Rect
	fills   []Rect
	texts   []string
}

func (s *recordingSurface) Clear() {
	s.clears++
	s.strokes, s.fills, s.texts = nil, nil, nil
}
func (s *recordingSurface) StrokeRect(r Rect, _ color.Color, _ int) { s.strokes = append(s.strokes, r) }
func (s *recordingSurface) FillRect(r Rect, _ color.Color)          { s.fills = append(s.fills, r) }
func (s *recordingSurface) Text(_, _ float64, str string, _ color.Color) {
	s.texts = append(s.texts, str)
}
func (s *recordingSurface) TextWidth(str string) float64 { return float64(len(str) * 7) }

func TestRenderer_RepaintsOnEveryInputChange(t *testing.T) {
	s := &recordingSurface{}
	r := NewRenderer(s, image.Pt(640, 480))
	r.SetDetections([]protocol.Detection{{X1: 10, Y1: 40, X2: 110, Y2: 140, Confidence: 0.5}})
	if s.clears != 1 || len(s.strokes) != 1 {
		t.Fatalf("expected one clear and one box, got %d/%d", s.clears, len(s.strokes))
	}
	// natural size becomes known after load: boxes move, still one of them
	r.ImageLoaded(image.Pt(1280, 960))
	if s.clears != 2 || len(s.strokes) != 1 {
		t.Fatalf("expected repaint on load, got %d/%d", s.clears, len(s.strokes))
	}
	if got := s.strokes[0]; !near(got.X, 5) || !near(got.W, 50) {
		t.Fatalf("unexpected rect after load %+v", got)
	}
	tag := s.fills[0]
	if !near(tag.Y, 20-TagHeight) || !near(tag.W, float64(len("Leaf 50%")*7)+10) || tag.H != TagHeight {
		t.Fatalf("unexpected tag %+v", tag)
	}
	r.SetDetections(nil)
	if s.clears != 3 || len(s.strokes) != 0 || len(s.texts) != 0 {
		t.Fatalf("empty list must leave a clear surface")
	}
}

func TestRaster_DrawIsIdempotent(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 200, 150))
	surface := NewRaster(base)
	r := NewRenderer(surface, image.Pt(200, 150))
	r.ImageLoaded(image.Pt(200, 150))
	r.SetDetections([]protocol.Detection{{X1: 20, Y1: 40, X2: 120, Y2: 100, Confidence: 0.8}})
	first := append([]uint8(nil), surface.Image().Pix...)
	r.Draw()
	r.Draw()
	if !bytes.Equal(first, surface.Image().Pix) {
		t.Fatalf("repeated draws must not accumulate")
	}
	if got := surface.Image().RGBAAt(20, 70); got != BoxColor {
		t.Fatalf("expected box edge at left side, got %v", got)
	}
	r.SetDetections(nil)
	if !bytes.Equal(base.Pix, surface.Image().Pix) {
		t.Fatalf("clearing detections must restore the frame")
	}
}

func TestCompose_ScalesFrameToDisplay(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1280, 960))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame, err := DecodeFrame(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := Compose(frame, []protocol.Detection{{X1: 200, Y1: 200, X2: 400, Y2: 400, Confidence: 0.9}}, image.Pt(640, 480))
	if out.Bounds().Dx() != 640 || out.Bounds().Dy() != 480 {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	if got := out.RGBAAt(100, 150); got != BoxColor {
		t.Fatalf("expected left edge at display x=100, got %v", got)
	}
}

func TestDecodeFrame_Rejects(t *testing.T) {
	if _, err := DecodeFrame(nil); err == nil {
		t.Fatalf("expected error for empty frame")
	}
	if _, err := DecodeFrame([]byte("not an image")); err == nil {
		t.Fatalf("expected error for garbage")
	}
}
