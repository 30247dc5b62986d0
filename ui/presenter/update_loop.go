package presenter

import (
	"time"

	"github.com/soocke/leafscan-go/domain/session"
)

// SnapshotSource yields the controller's latest published view.
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// Loop aggregates feature presenters and drives periodic updates.
//
// Every tick reads one snapshot and hands it to each sub-presenter, then
// invokes the scheduler callback. The zero value is usable (methods are
// nil-safe).
type Loop struct {
	Source   SnapshotSource
	Status   *StatusPresenter
	Session  *SessionPresenter
	Feed     *FeedPresenter
	Results  *ResultsPresenter
	Schedule func()

	now func() time.Time
}

func NewLoop(src SnapshotSource, status *StatusPresenter, sess *SessionPresenter, feed *FeedPresenter, res *ResultsPresenter, schedule func()) *Loop {
	return &Loop{Source: src, Status: status, Session: sess, Feed: feed, Results: res, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	if l.Source != nil {
		now := time.Now()
		if l.now != nil {
			now = l.now()
		}
		snap := l.Source.Snapshot()
		l.Status.Tick(snap, now)
		l.Session.Tick(snap, now)
		l.Feed.Tick(snap, now)
		l.Results.Tick(snap, now)
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}

// Close stops background workers owned by the presenters.
func (l *Loop) Close() {
	if l != nil {
		l.Feed.Close()
	}
}
