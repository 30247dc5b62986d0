package view

import (
	"image"

	"github.com/soocke/leafscan-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// FeedPreview shows the composed camera frame with its overlay, a close-up
// of the strongest detection and a caption line.
type FeedPreview interface {
	UpdateFeed(img image.Image)
	UpdateDetection(img image.Image)
	SetFeedCaption(text string)
	Reset()
}

const (
	cropW = 160
	cropH = 160
)

type feedPreview struct {
	feed    photo
	crop    photo
	caption *LabelWidget
	w, h    int
}

// NewFeedPreview creates the feed widgets inside parent at the given size.
// The feed spans rows 0-1 of parent; the crop and caption sit beside it.
func NewFeedPreview(parent *FrameWidget, w, h int) FeedPreview {
	v := &feedPreview{w: w, h: h}
	v.feed.label = Label(Borderwidth(1), Relief("sunken"))
	v.crop.label = Label(Borderwidth(1), Relief("sunken"))
	v.caption = Label(Txt("No frame yet"), Anchor("w"))
	Grid(v.feed.label, In(parent), Row(0), Column(0), Rowspan(2), Sticky("nw"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.crop.label, In(parent), Row(0), Column(1), Sticky("n"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.caption, In(parent), Row(2), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"))
	v.Reset()
	return v
}

func (v *feedPreview) UpdateFeed(img image.Image) {
	if img == nil {
		return
	}
	v.feed.set(images.EncodePNG(images.ScaleToFit(img, v.w, v.h)))
}

func (v *feedPreview) UpdateDetection(img image.Image) {
	if img == nil {
		return
	}
	v.crop.set(images.EncodePNG(images.ScaleToFit(img, cropW, cropH)))
}

func (v *feedPreview) SetFeedCaption(text string) {
	if v.caption != nil {
		v.caption.Configure(Txt(text))
	}
}

func (v *feedPreview) Reset() {
	v.feed.set(images.EncodePNG(images.Placeholder(v.w, v.h)))
	v.crop.set(images.EncodePNG(images.Placeholder(cropW, cropH)))
}
