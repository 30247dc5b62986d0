// Package tui is a terminal dashboard over a scan session: state, event
// channel health, scan progress, the newest results and keyboard control of
// the rig.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/ui/presenter"
)

// Controller is the session surface the dashboard drives.
type Controller interface {
	Snapshot() session.Snapshot
	Updates() <-chan struct{}
	Connect(address string, port int)
	Disconnect()
	StartScan()
	StopScan()
	Detect()
	Move(dir rig.Direction)
	DismissError()
	ClearResults()
}

const (
	tickEvery   = 500 * time.Millisecond
	maxListed   = 8
	noticeShown = 4 * time.Second
)

type (
	snapMsg session.Snapshot
	tickMsg time.Time
)

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctrl    Controller
	address string
	port    int
	keys    KeyMap

	snap     session.Snapshot
	now      time.Time
	width    int
	height   int
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	quitting bool
}

// NewModel creates a dashboard for ctrl. address and port are used by the
// connect key.
func NewModel(ctrl Controller, address string, port int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	return Model{
		ctrl:     ctrl,
		address:  address,
		port:     port,
		keys:     DefaultKeyMap,
		snap:     ctrl.Snapshot(),
		now:      time.Now(),
		spinner:  s,
		progress: p,
		help:     help.New(),
	}
}

// Init starts the spinner, the clock and the snapshot watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), m.waitForUpdate())
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForUpdate blocks on the controller's change signal and then reads the
// newest snapshot.
func (m Model) waitForUpdate() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		<-ctrl.Updates()
		return snapMsg(ctrl.Snapshot())
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-30))
		return m, nil

	case snapMsg:
		m.snap = session.Snapshot(msg)
		return m, m.waitForUpdate()

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, k.Connect):
		m.ctrl.Connect(m.address, m.port)
	case key.Matches(msg, k.Disconnect):
		m.ctrl.Disconnect()
	case key.Matches(msg, k.Start):
		m.ctrl.StartScan()
	case key.Matches(msg, k.Stop):
		m.ctrl.StopScan()
	case key.Matches(msg, k.Detect):
		m.ctrl.Detect()
	case key.Matches(msg, k.Left):
		m.ctrl.Move(rig.Left)
	case key.Matches(msg, k.Right):
		m.ctrl.Move(rig.Right)
	case key.Matches(msg, k.Up):
		m.ctrl.Move(rig.Up)
	case key.Matches(msg, k.Down):
		m.ctrl.Move(rig.Down)
	case key.Matches(msg, k.Center):
		m.ctrl.Move(rig.Center)
	case key.Matches(msg, k.Halt):
		m.ctrl.Move(rig.Stop)
	case key.Matches(msg, k.Dismiss):
		m.ctrl.DismissError()
	case key.Matches(msg, k.Clear):
		m.ctrl.ClearResults()
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap
	var b strings.Builder

	badge := badgeStyle.Background(lipgloss.Color(s.Display.Color)).Render(presenter.StateText(s))
	if s.Display.Pulse {
		badge = m.spinner.View() + " " + badge
	}
	b.WriteString(titleStyle.Render("leafscan") + "  " + badge + "\n")
	b.WriteString(mutedStyle.Render(presenter.ConnectionText(s, m.now)) + "\n")
	if s.Holding {
		b.WriteString(mutedStyle.Render("Moving "+string(s.HoldDirection)+"...") + "\n")
	}
	b.WriteString("\n")

	if s.Frame != nil && s.Frame.Progress != "" {
		if done, total, ok := parseProgress(s.Frame.Progress); ok {
			b.WriteString(m.progress.ViewAs(float64(done)/float64(total)) + " " + s.Frame.Progress + "\n")
		}
	}
	b.WriteString(presenter.FeedCaption(s) + "\n\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Results (%d)", len(s.Results))) + "\n")
	if len(s.Results) == 0 {
		b.WriteString(mutedStyle.Render("  none yet") + "\n")
	}
	for i, r := range s.Results {
		if i == maxListed {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  ... %d more", len(s.Results)-maxListed)) + "\n")
			break
		}
		row := presenter.RowFor(r, m.now)
		title := row.Title
		switch {
		case row.Healthy:
			title = healthyStyle.Render(title)
		case row.Severity != "":
			title = severityStyle(row.Severity).Render(title + " [" + row.Severity + "]")
		}
		b.WriteString("  " + title + "  " + mutedStyle.Render(row.Detail) + "\n")
		if advice := firstLine(row.Advice); advice != "" {
			b.WriteString("    " + adviceStyle.Render(advice) + "\n")
		}
	}

	if s.LastError != "" {
		b.WriteString("\n" + errorStyle.Render(" "+s.LastError+" ") + mutedStyle.Render("  (e to dismiss)") + "\n")
	}
	if n := s.Notice; n != nil && m.now.Sub(n.At) < noticeShown {
		b.WriteString("\n" + noticeStyle.Render(n.Message) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func parseProgress(p string) (done, total int, ok bool) {
	a, c, found := strings.Cut(p, "/")
	if !found {
		return 0, 0, false
	}
	done, err1 := strconv.Atoi(strings.TrimSpace(a))
	total, err2 := strconv.Atoi(strings.TrimSpace(c))
	if err1 != nil || err2 != nil || total <= 0 || done < 0 || done > total {
		return 0, 0, false
	}
	return done, total, true
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if len(line) > 100 {
		line = line[:97] + "..."
	}
	return line
}
