package images

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// CropDetection cuts the region of d out of frame, padded by pad pixels on
// every side and clamped to the frame bounds. The result is at least 1x1.
func CropDetection(frame image.Image, d protocol.Detection, pad int) (*image.NRGBA, image.Rectangle, error) {
	if frame == nil {
		return nil, image.Rectangle{}, errors.New("nil frame")
	}
	b := frame.Bounds()
	r := image.Rect(int(d.X1)-pad, int(d.Y1)-pad, int(d.X2)+pad, int(d.Y2)+pad).
		Add(b.Min).
		Intersect(b)
	if r.Empty() {
		x := min(max(b.Min.X+int(d.X1), b.Min.X), b.Max.X-1)
		y := min(max(b.Min.Y+int(d.Y1), b.Min.Y), b.Max.Y-1)
		r = image.Rect(x, y, x+1, y+1)
	}
	return imaging.Crop(frame, r), r.Sub(b.Min), nil
}

// BestDetection returns the highest-confidence detection.
func BestDetection(dets []protocol.Detection) (protocol.Detection, bool) {
	if len(dets) == 0 {
		return protocol.Detection{}, false
	}
	best := dets[0]
	for _, d := range dets[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}
