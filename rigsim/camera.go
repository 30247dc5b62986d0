package rigsim

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/vova616/screenshot"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// Frame size produced by every camera.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// Shot is one captured still. Leaves holds the ground-truth leaf boxes the
// camera knows about, in frame pixels; it is empty for real cameras.
type Shot struct {
	JPEG       []byte
	Leaves     []Leaf
	CapturedAt time.Time
	Sequence   uint64
}

// Leaf is a leaf visible in a shot.
type Leaf struct {
	Box        image.Rectangle
	Confidence float64
	Disease    string
}

// Camera captures stills at a servo position.
type Camera interface {
	Capture(pos protocol.Position) (Shot, error)
}

// CameraStats summarises capture behaviour.
type CameraStats struct {
	Captures   uint64
	Failures   uint64
	AvgCapture time.Duration
	LastShot   time.Time
	Sequence   uint64
}

// stats is embedded by cameras to track capture timing and the latest shot.
type stats struct {
	latest   atomic.Pointer[Shot]
	captures atomic.Uint64
	failures atomic.Uint64
	nanos    atomic.Uint64
	sequence atomic.Uint64
}

func (s *stats) record(shot Shot, elapsed time.Duration) Shot {
	s.captures.Add(1)
	s.nanos.Add(uint64(elapsed.Nanoseconds()))
	shot.Sequence = s.sequence.Add(1)
	shot.CapturedAt = time.Now()
	s.latest.Store(&shot)
	return shot
}

// Latest returns the most recent shot.
func (s *stats) Latest() Shot {
	if p := s.latest.Load(); p != nil {
		return *p
	}
	return Shot{}
}

// Stats returns capture counters.
func (s *stats) Stats() CameraStats {
	n := s.captures.Load()
	var avg time.Duration
	if n > 0 {
		avg = time.Duration(s.nanos.Load() / n)
	}
	latest := s.Latest()
	return CameraStats{Captures: n, Failures: s.failures.Load(), AvgCapture: avg, LastShot: latest.CapturedAt, Sequence: latest.Sequence}
}

// FieldLeaf places a leaf in servo space.
type FieldLeaf struct {
	Pan, Tilt  int
	Radius     int // frame pixels
	Confidence float64
	Disease    string
}

// SyntheticCamera renders a plant bed with leaves at fixed servo positions. A
// leaf is visible when the camera points within half a field of view of it.
type SyntheticCamera struct {
	stats
	Field []FieldLeaf
	FOV   int // degrees covered by one frame horizontally
}

// DefaultField is a small bed with one healthy and two diseased leaves.
func DefaultField() []FieldLeaf {
	return []FieldLeaf{
		{Pan: 30, Tilt: 30, Radius: 70, Confidence: 0.91, Disease: "Tomato_Early_Blight"},
		{Pan: 90, Tilt: 75, Radius: 90, Confidence: 0.84, Disease: "Healthy"},
		{Pan: 150, Tilt: 105, Radius: 60, Confidence: 0.67, Disease: "Tomato_Late_Blight"},
	}
}

// NewSyntheticCamera returns a camera over field.
func NewSyntheticCamera(field []FieldLeaf) *SyntheticCamera {
	return &SyntheticCamera{Field: field, FOV: 20}
}

var (
	soilColor = color.RGBA{R: 0x5b, G: 0x43, B: 0x2c, A: 0xff}
	leafColor = color.RGBA{R: 0x3f, G: 0x9b, B: 0x3a, A: 0xff}
	spotColor = color.RGBA{R: 0x6b, G: 0x4e, B: 0x16, A: 0xff}
)

func (c *SyntheticCamera) Capture(pos protocol.Position) (Shot, error) {
	start := time.Now()
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(soilColor), image.Point{}, draw.Src)
	fov := c.FOV
	if fov <= 0 {
		fov = 20
	}
	var leaves []Leaf
	for _, l := range c.Field {
		dp, dt := l.Pan-pos.Pan, l.Tilt-pos.Tilt
		if abs(dp)*2 > fov || abs(dt)*2 > fov {
			continue
		}
		cx := FrameWidth/2 + dp*FrameWidth/fov
		cy := FrameHeight/2 + dt*FrameHeight/fov
		fillEllipse(img, cx, cy, l.Radius, l.Radius*2/3, leafColor)
		if l.Disease != "Healthy" {
			fillEllipse(img, cx-l.Radius/3, cy, l.Radius/6, l.Radius/6, spotColor)
			fillEllipse(img, cx+l.Radius/4, cy-l.Radius/5, l.Radius/8, l.Radius/8, spotColor)
		}
		box := image.Rect(cx-l.Radius, cy-l.Radius*2/3, cx+l.Radius, cy+l.Radius*2/3).Intersect(img.Bounds())
		if !box.Empty() {
			leaves = append(leaves, Leaf{Box: box, Confidence: l.Confidence, Disease: l.Disease})
		}
	}
	buf, err := encodeJPEG(img)
	if err != nil {
		c.failures.Add(1)
		return Shot{}, err
	}
	return c.record(Shot{JPEG: buf, Leaves: leaves}, time.Since(start)), nil
}

// ScreenCamera captures the local screen, so the simulator can be pointed at
// a window showing real plants. It never reports leaves.
type ScreenCamera struct {
	stats
	Rect   image.Rectangle // empty means the whole screen
	logger *slog.Logger
}

// NewScreenCamera returns a camera over rect of the screen.
func NewScreenCamera(rect image.Rectangle, logger *slog.Logger) *ScreenCamera {
	return &ScreenCamera{Rect: rect, logger: logger}
}

func (c *ScreenCamera) Capture(protocol.Position) (Shot, error) {
	start := time.Now()
	var (
		img *image.RGBA
		err error
	)
	if c.Rect.Empty() {
		img, err = screenshot.CaptureScreen()
	} else {
		img, err = screenshot.CaptureRect(c.Rect)
	}
	if err != nil {
		c.failures.Add(1)
		if c.logger != nil {
			c.logger.Error("screen capture", "error", err)
		}
		return Shot{}, fmt.Errorf("screen capture: %w", err)
	}
	scaled := imaging.Fill(img, FrameWidth, FrameHeight, imaging.Center, imaging.Linear)
	buf, err := encodeJPEG(scaled)
	if err != nil {
		c.failures.Add(1)
		return Shot{}, err
	}
	return c.record(Shot{JPEG: buf}, time.Since(start)), nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func fillEllipse(img *image.RGBA, cx, cy, rx, ry int, c color.RGBA) {
	if rx < 1 || ry < 1 {
		return
	}
	b := img.Bounds()
	for y := cy - ry; y <= cy+ry; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		dy := float64(y-cy) / float64(ry)
		half := int(float64(rx) * math.Sqrt(math.Max(0, 1-dy*dy)))
		for x := cx - half; x <= cx+half; x++ {
			if x >= b.Min.X && x < b.Max.X {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
