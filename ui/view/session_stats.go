package view

import (
	"fmt"
	"time"

	"github.com/soocke/leafscan-go/ui/presenter"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows the running scan time, the session total and the
// number of scans.
type SessionStats interface {
	SetSession(current, total time.Duration, scans int)
}

type sessionStats struct {
	scanLbl  *LabelWidget
	totalLbl *LabelWidget
	countLbl *LabelWidget
}

// NewSessionStats grids three labels into parent at row, starting at startCol.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{scanLbl: Label(Width(14)), totalLbl: Label(Width(14)), countLbl: Label(Width(10))}
	for i, l := range []*LabelWidget{s.scanLbl, s.totalLbl, s.countLbl} {
		Grid(l, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
	}
	s.SetSession(0, 0, 0)
	return s
}

func (s *sessionStats) SetSession(current, total time.Duration, scans int) {
	if s == nil || s.scanLbl == nil {
		return
	}
	s.scanLbl.Configure(Txt("Scan: " + presenter.Clock(current)))
	s.totalLbl.Configure(Txt("Total: " + presenter.Clock(total)))
	s.countLbl.Configure(Txt(fmt.Sprintf("Scans: %d", scans)))
}
