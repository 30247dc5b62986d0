package presenter

import (
	"time"

	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/ui/model"
)

// SessionView displays the running scan time, the session total and the
// number of scans started.
type SessionView interface {
	SetSession(current, total time.Duration, scans int)
}

// SessionPresenter feeds the scanning flag into the timer model and pushes
// formatted values to the view.
type SessionPresenter struct {
	timer *model.ScanTimer
	view  SessionView
	id    string
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(timer *model.ScanTimer, view SessionView) *SessionPresenter {
	return &SessionPresenter{timer: timer, view: view}
}

// Tick advances the timer and refreshes the view. A new session id resets
// the accumulated totals.
func (p *SessionPresenter) Tick(snap session.Snapshot, now time.Time) {
	if p == nil || p.timer == nil || p.view == nil {
		return
	}
	if snap.SessionID != p.id {
		p.id = snap.SessionID
		p.timer.Reset()
	}
	p.timer.OnTick(snap.Scanning, now)
	cur, total := p.timer.Values()
	p.view.SetSession(cur, total, p.timer.Scans())
}
