package images

import (
	"image"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soocke/leafscan-go/domain/overlay"
)

// ThumbKey identifies one rendered thumbnail.
type ThumbKey struct {
	ScanIndex  int
	ReceivedAt time.Time
	Size       image.Point
	HasImage   bool
}

// ThumbCache keeps scaled PNG renditions of result images so list redraws
// do not decode and rescale every frame.
type ThumbCache struct {
	cache *lru.Cache[ThumbKey, []byte]
}

// NewThumbCache returns a cache holding at most size thumbnails.
func NewThumbCache(size int) *ThumbCache {
	if size < 1 {
		size = 64
	}
	c, _ := lru.New[ThumbKey, []byte](size)
	return &ThumbCache{cache: c}
}

// Get returns the PNG thumbnail for key, rendering src (JPEG or PNG bytes)
// on a miss. An undecodable or empty src yields a placeholder.
func (t *ThumbCache) Get(key ThumbKey, src []byte) []byte {
	if t == nil {
		return render(key.Size, src)
	}
	if b, ok := t.cache.Get(key); ok {
		return b
	}
	b := render(key.Size, src)
	t.cache.Add(key, b)
	return b
}

// Len reports the number of cached thumbnails.
func (t *ThumbCache) Len() int {
	if t == nil {
		return 0
	}
	return t.cache.Len()
}

// Purge drops every cached thumbnail.
func (t *ThumbCache) Purge() {
	if t != nil {
		t.cache.Purge()
	}
}

func render(size image.Point, src []byte) []byte {
	w, h := max(1, size.X), max(1, size.Y)
	img, err := overlay.DecodeFrame(src)
	if err != nil {
		return EncodePNG(Placeholder(w, h))
	}
	return EncodePNG(ScaleToFit(img, w, h))
}
