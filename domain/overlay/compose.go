package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// DecodeFrame decodes a JPEG or PNG frame.
func DecodeFrame(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Compose scales frame to display and paints dets over it. A nil frame
// yields a blank display-sized image with boxes mapped from the fallback
// resolution.
func Compose(frame image.Image, dets []protocol.Detection, display image.Point) *image.RGBA {
	if display.X < 1 || display.Y < 1 {
		display = image.Pt(FallbackWidth, FallbackHeight)
	}
	base := image.NewRGBA(image.Rect(0, 0, display.X, display.Y))
	var natural image.Point
	if frame != nil {
		natural = frame.Bounds().Size()
		scaled := imaging.Resize(frame, display.X, display.Y, imaging.Linear)
		draw.Draw(base, base.Bounds(), scaled, scaled.Bounds().Min, draw.Src)
	}
	surface := NewRaster(base)
	r := NewRenderer(surface, display)
	r.ImageLoaded(natural)
	r.SetDetections(dets)
	return surface.Image()
}
