package images

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// EncodePNG returns img as PNG bytes for Tk photos, or nil when img is nil or
// cannot be encoded.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil
	}
	return buf.Bytes()
}

// ScaleToFit scales src so that it fits within maxW x maxH preserving aspect
// ratio. If the source already fits, src is returned.
func ScaleToFit(src image.Image, maxW, maxH int) image.Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return src
	}
	return imaging.Fit(src, max(1, maxW), max(1, maxH), imaging.Linear)
}

var placeholderColor = color.NRGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}

// Placeholder returns a flat image of the given size for empty previews.
func Placeholder(w, h int) image.Image {
	return imaging.New(max(1, w), max(1, h), placeholderColor)
}
