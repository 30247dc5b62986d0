package presenter

import (
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/soocke/leafscan-go/domain/overlay"
	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/ui/images"
	"github.com/soocke/leafscan-go/ui/model"
)

// FeedView describes the UI surface updated by the presenter.
type FeedView interface {
	UpdateFeed(img image.Image)
	UpdateDetection(img image.Image)
	SetFeedCaption(text string)
}

type feedTask struct {
	frameSeq uint64
	detSeq   uint64
	frame    []byte
	dets     []protocol.Detection
	display  image.Point
}

type feedResult struct {
	frameSeq uint64
	detSeq   uint64
	img      *image.RGBA
	crop     image.Image
	blank    bool
	err      error
	duration time.Duration
}

// FeedPresenter composes the latest frame and detection overlay on a worker
// goroutine and hands finished images to the view on the UI tick. Work and
// result channels hold one item and drop the oldest.
type FeedPresenter struct {
	View    FeedView
	Model   *model.FeedModel
	Display image.Point
	logger  *slog.Logger

	workerOnce sync.Once
	closeOnce  sync.Once
	workCh     chan feedTask
	resultCh   chan feedResult
	caption    string
}

// NewFeedPresenter constructs a feed presenter rendering at display size.
func NewFeedPresenter(view FeedView, m *model.FeedModel, display image.Point, logger *slog.Logger) *FeedPresenter {
	if m == nil {
		m = model.NewFeedModel()
	}
	if display.X < 1 || display.Y < 1 {
		display = image.Pt(overlay.FallbackWidth, overlay.FallbackHeight)
	}
	return &FeedPresenter{
		View:     view,
		Model:    m,
		Display:  display,
		logger:   logger,
		workCh:   make(chan feedTask, 1),
		resultCh: make(chan feedResult, 1),
	}
}

// Resize changes the render size; the next tick recomposes.
func (p *FeedPresenter) Resize(display image.Point) {
	if p == nil || display.X < 1 || display.Y < 1 || display == p.Display {
		return
	}
	p.Display = display
	p.Model.Reset()
}

// Tick applies finished compositions and schedules a new one when the
// snapshot carries a frame or detection list the view does not show yet.
func (p *FeedPresenter) Tick(snap session.Snapshot, now time.Time) {
	if p == nil || p.View == nil {
		return
	}
	p.ensureWorker()

drain:
	for {
		select {
		case res := <-p.resultCh:
			p.handleResult(res, now)
		default:
			break drain
		}
	}

	if c := FeedCaption(snap); c != p.caption {
		p.caption = c
		p.View.SetFeedCaption(c)
	}

	var frameSeq uint64
	var frame []byte
	if snap.Frame != nil {
		frameSeq, frame = snap.Frame.Seq, snap.Frame.Image
	}
	if !p.Model.Stale(frameSeq, snap.DetectionSeq) {
		return
	}
	p.Model.MarkRequested(frameSeq, snap.DetectionSeq)
	p.dispatch(feedTask{
		frameSeq: frameSeq,
		detSeq:   snap.DetectionSeq,
		frame:    frame,
		dets:     snap.Detections,
		display:  p.Display,
	})
}

// Close stops the worker. Further ticks are ignored.
func (p *FeedPresenter) Close() {
	if p == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.workerOnce.Do(func() {})
		close(p.workCh)
		p.View = nil
	})
}

func (p *FeedPresenter) ensureWorker() {
	p.workerOnce.Do(func() {
		go p.runWorker()
	})
}

func (p *FeedPresenter) runWorker() {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Error("feed worker panic", "error", r)
		}
	}()
	for task := range p.workCh {
		res := compose(task)
		select {
		case p.resultCh <- res:
		default:
			select {
			case <-p.resultCh:
			default:
			}
			select {
			case p.resultCh <- res:
			default:
			}
		}
	}
}

func (p *FeedPresenter) dispatch(task feedTask) {
	select {
	case p.workCh <- task:
	default:
		select {
		case <-p.workCh:
		default:
		}
		select {
		case p.workCh <- task:
		default:
		}
	}
}

func compose(task feedTask) feedResult {
	start := time.Now()
	res := feedResult{frameSeq: task.frameSeq, detSeq: task.detSeq}
	var frame image.Image
	if len(task.frame) > 0 {
		img, err := overlay.DecodeFrame(task.frame)
		if err != nil {
			res.err = err
		} else {
			frame = img
		}
	}
	res.blank = frame == nil
	res.img = overlay.Compose(frame, task.dets, task.display)
	if best, ok := images.BestDetection(task.dets); ok && frame != nil {
		if crop, _, err := images.CropDetection(frame, best, 8); err == nil {
			res.crop = crop
		}
	}
	res.duration = time.Since(start)
	return res
}

func (p *FeedPresenter) handleResult(res feedResult, now time.Time) {
	if res.err != nil && p.logger != nil {
		p.logger.Warn("frame decode failed", "seq", res.frameSeq, "error", res.err)
	}
	p.Model.Rendered(now, res.duration, res.blank)
	p.View.UpdateFeed(res.img)
	if res.crop != nil {
		p.View.UpdateDetection(res.crop)
	}
	if p.logger != nil {
		p.logger.Debug("feed composed", "frame", res.frameSeq, "detections", res.detSeq, "took", res.duration)
	}
}

// FeedCaption summarises the latest frame's position, scan progress and
// detection count.
func FeedCaption(s session.Snapshot) string {
	var parts []string
	if f := s.Frame; f != nil {
		if f.Position != nil {
			parts = append(parts, fmt.Sprintf("Pan %d° Tilt %d°", f.Position.Pan, f.Position.Tilt))
		}
		if f.Progress != "" {
			parts = append(parts, "Position "+f.Progress)
		}
	}
	switch n := len(s.Detections); n {
	case 0:
		parts = append(parts, "No detections")
	case 1:
		parts = append(parts, fmt.Sprintf("1 detection (%s)", Percent(s.Detections[0].Confidence)))
	default:
		best, _ := images.BestDetection(s.Detections)
		parts = append(parts, fmt.Sprintf("%d detections (best %s)", n, Percent(best.Confidence)))
	}
	return strings.Join(parts, " | ")
}
