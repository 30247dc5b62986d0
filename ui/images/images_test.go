package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/soocke/leafscan-go/domain/protocol"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestScaleToFit_KeepsAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	out := ScaleToFit(src, 320, 320)
	if out.Bounds().Dx() != 320 || out.Bounds().Dy() != 240 {
		t.Fatalf("expected 320x240 got %v", out.Bounds())
	}
	if ScaleToFit(src, 800, 600) != image.Image(src) {
		t.Fatalf("image within bounds should be returned as is")
	}
	if ScaleToFit(nil, 10, 10) != nil {
		t.Fatalf("nil source should stay nil")
	}
}

func TestCropDetection_PadsAndClamps(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 100, 100))
	crop, rect, err := CropDetection(frame, protocol.Detection{X1: 10, Y1: 20, X2: 40, Y2: 60}, 5)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if rect != image.Rect(5, 15, 45, 65) {
		t.Fatalf("unexpected rect %v", rect)
	}
	if crop.Bounds().Dx() != 40 || crop.Bounds().Dy() != 50 {
		t.Fatalf("unexpected crop size %v", crop.Bounds())
	}

	_, rect, _ = CropDetection(frame, protocol.Detection{X1: 90, Y1: 90, X2: 140, Y2: 140}, 10)
	if rect.Max.X > 100 || rect.Max.Y > 100 || rect.Min.X != 80 {
		t.Fatalf("rect not clamped: %v", rect)
	}
}

func TestCropDetection_OutsideFrameIsOnePixel(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 10, 10))
	crop, rect, err := CropDetection(frame, protocol.Detection{X1: 50, Y1: 50, X2: 60, Y2: 60}, 0)
	if err != nil || crop == nil {
		t.Fatalf("crop: %v", err)
	}
	if rect.Dx() != 1 || rect.Dy() != 1 {
		t.Fatalf("expected 1x1 got %v", rect)
	}
	if _, _, err := CropDetection(nil, protocol.Detection{}, 0); err == nil {
		t.Fatalf("nil frame should fail")
	}
}

func TestBestDetection(t *testing.T) {
	if _, ok := BestDetection(nil); ok {
		t.Fatalf("empty list has no best")
	}
	d, ok := BestDetection([]protocol.Detection{{Confidence: 0.3}, {Confidence: 0.9}, {Confidence: 0.5}})
	if !ok || d.Confidence != 0.9 {
		t.Fatalf("unexpected best %+v", d)
	}
}

func TestThumbCache_RendersOnceAndFallsBack(t *testing.T) {
	c := NewThumbCache(2)
	key := ThumbKey{ScanIndex: 1, ReceivedAt: time.Unix(10, 0), Size: image.Pt(64, 48), HasImage: true}
	src := jpegBytes(t, 640, 480)
	first := c.Get(key, src)
	if len(first) == 0 {
		t.Fatalf("expected png bytes")
	}
	// A hit must not look at src again.
	if again := c.Get(key, nil); !bytes.Equal(again, first) {
		t.Fatalf("cache miss on identical key")
	}
	ph := c.Get(ThumbKey{ScanIndex: 2, Size: image.Pt(64, 48)}, []byte("not an image"))
	if len(ph) == 0 {
		t.Fatalf("expected placeholder bytes")
	}
	c.Get(ThumbKey{ScanIndex: 3, Size: image.Pt(64, 48)}, nil)
	if c.Len() != 2 {
		t.Fatalf("cache should be bounded to 2, got %d", c.Len())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("purge left %d entries", c.Len())
	}
}
