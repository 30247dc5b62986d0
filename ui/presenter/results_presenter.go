package presenter

import (
	"image"
	"time"

	"github.com/soocke/leafscan-go/domain/results"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/ui/images"
)

const relativeRefresh = 15 * time.Second

// ResultEntry is a row plus its rendered thumbnail (PNG bytes).
type ResultEntry struct {
	ResultRow
	Thumb []byte
}

// ResultsView lists the newest results. total is the full list length.
type ResultsView interface {
	SetResults(entries []ResultEntry, total int)
}

// ResultsPresenter renders the first Visible results whenever the list
// changes, and periodically so relative times stay current.
type ResultsPresenter struct {
	view    ResultsView
	thumbs  *images.ThumbCache
	Visible int
	Thumb   image.Point

	seq     uint64
	count   int
	drawnAt time.Time
	primed  bool
	last    []results.Result
}

func NewResultsPresenter(view ResultsView, thumbs *images.ThumbCache, visible int, thumb image.Point) *ResultsPresenter {
	if visible < 1 {
		visible = 6
	}
	if thumb.X < 1 || thumb.Y < 1 {
		thumb = image.Pt(96, 72)
	}
	return &ResultsPresenter{view: view, thumbs: thumbs, Visible: visible, Thumb: thumb}
}

// Tick redraws when the result list changed or the relative times went stale.
func (p *ResultsPresenter) Tick(snap session.Snapshot, now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	changed := !p.primed || snap.ResultsSeq != p.seq || len(snap.Results) != p.count
	if !changed && now.Sub(p.drawnAt) < relativeRefresh {
		return
	}
	p.primed, p.seq, p.count, p.drawnAt = true, snap.ResultsSeq, len(snap.Results), now
	if len(snap.Results) == 0 {
		p.thumbs.Purge()
	}
	p.last = snap.Results
	p.view.SetResults(p.Entries(snap.Results, now), len(snap.Results))
}

// Entries renders up to Visible rows of list.
func (p *ResultsPresenter) Entries(list []results.Result, now time.Time) []ResultEntry {
	n := min(len(list), p.Visible)
	out := make([]ResultEntry, 0, n)
	for _, r := range list[:n] {
		key := images.ThumbKey{ScanIndex: r.ScanIndex, ReceivedAt: r.ReceivedAt, Size: p.Thumb, HasImage: len(r.Thumbnail) > 0}
		out = append(out, ResultEntry{ResultRow: RowFor(r, now), Thumb: p.thumbs.Get(key, r.Thumbnail)})
	}
	return out
}

// At returns the i-th displayed result, for detail views.
func (p *ResultsPresenter) At(i int) (results.Result, bool) {
	if p == nil || i < 0 || i >= len(p.last) || i >= p.Visible {
		return results.Result{}, false
	}
	return p.last[i], true
}
