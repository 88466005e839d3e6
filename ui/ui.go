// Package ui renders an interactive status line while hum speaks, with
// keyboard control over the playback queue.
package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/dgnsrekt/hum/tts"
	"github.com/dgnsrekt/hum/tts/audio"
)

const (
	defaultRefreshInterval = 250 * time.Millisecond

	// how long transient notes like "flushed 3" stay visible
	noteTimeout = 2 * time.Second

	ellipsis = "…"
)

// Config configures the status display.
type Config struct {
	// Title names the source being spoken: a file name, "stdin", and so on.
	Title string

	// Total is how many utterances this run will speak, zero when unknown
	// (follow mode).
	Total int

	// RefreshInterval controls how often position and queue depth refresh.
	RefreshInterval time.Duration `env:"HUM_UI_REFRESH" envDefault:"250ms"`
}

// DoneMsg tells the status display the speaking run is finished and the
// program should exit. The host sends it once every outcome has resolved.
type DoneMsg struct{}

// NewProgram returns a Tea program displaying playback status for client.
// The model subscribes to the client's events immediately, so start the
// program before enqueueing work to see every event.
func NewProgram(client *tts.Client, cfg Config) *tea.Program {
	return tea.NewProgram(newModel(client, cfg))
}

type (
	eventMsg        struct{ event tts.Event }
	eventsClosedMsg struct{}
	tickMsg         struct{}
)

type controlOp int

const (
	opPause controlOp = iota
	opResume
	opStop
	opFlush
)

// controlMsg reports the result of a keyboard-triggered client call.
type controlMsg struct {
	op      controlOp
	flushed int
	err     error
}

type keyMap struct {
	PauseResume key.Binding
	Stop        key.Binding
	Flush       key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PauseResume: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause/resume"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Flush: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "flush queue"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	stoppingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AAFF"))
	speechStyle   = lipgloss.NewStyle().Italic(true)
)

type model struct {
	client *tts.Client
	sub    *tts.Subscription
	cfg    Config

	spinner spinner.Model
	keys    keyMap
	width   int

	state    tts.State
	paused   bool
	active   bool
	current  string
	done     int
	played   int
	inflight int
	queued   int
	elapsed  time.Duration
	duration time.Duration

	note    string
	noteAt  time.Time
	lastErr error

	quitting bool
}

func newModel(client *tts.Client, cfg Config) model {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(spinnerStyle),
	)

	m := model{
		client:  client,
		cfg:     cfg,
		spinner: sp,
		keys:    defaultKeyMap(),
		width:   80,
		state:   tts.StateIdle,
	}
	if client != nil {
		m.sub = client.Subscribe()
		m.state = client.State()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tick(m.cfg.RefreshInterval)}
	if m.sub != nil {
		cmds = append(cmds, waitForEvent(m.sub))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Stop):
			cmds = append(cmds, stopCmd(m.client))
		case key.Matches(msg, m.keys.Flush):
			cmds = append(cmds, flushCmd(m.client))
		case key.Matches(msg, m.keys.PauseResume):
			cmds = append(cmds, pauseResumeCmd(m.client, m.paused))
		}

	case eventMsg:
		m.handleEvent(msg.event)
		cmds = append(cmds, waitForEvent(m.sub))

	case eventsClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case DoneMsg:
		return m.quit()

	case controlMsg:
		m.handleControl(msg)

	case tickMsg:
		if m.client != nil {
			m.elapsed, m.duration = m.client.Position()
			m.queued = m.client.QueueLen()
		}
		if m.note != "" && time.Since(m.noteAt) > noteTimeout {
			m.note = ""
		}
		if !m.quitting {
			cmds = append(cmds, tick(m.cfg.RefreshInterval))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.client != nil {
		m.client.Stop()
	}
	if m.sub != nil {
		m.sub.Close()
	}
	return m, tea.Quit
}

func (m *model) handleEvent(e tts.Event) {
	switch e := e.(type) {
	case tts.UtteranceStartedEvent:
		m.active = true
		m.paused = false
		m.current = e.Text
		m.duration = e.Duration
		m.elapsed = 0

	case tts.UtteranceStoppedEvent:
		m.active = false
		m.current = ""
		m.done++
		if e.Played {
			m.played++
		}

	case tts.ClipChangedEvent:
		if e.Clip == nil {
			m.active = false
			m.current = ""
		}

	case tts.RequestStatusEvent:
		switch e.Status {
		case tts.StatusRequesting:
			m.inflight++
		case tts.StatusQueued, tts.StatusFailed, tts.StatusDiscarded:
			if m.inflight > 0 {
				m.inflight--
			}
		}
		if e.Status == tts.StatusFailed || e.Status == tts.StatusDiscarded {
			m.done++
		}
		if e.Err != nil {
			m.lastErr = e.Err
		}

	case tts.ErrorEvent:
		m.lastErr = e.Err

	case tts.StateChangedEvent:
		m.state = e.To
		if e.To != tts.StateRunning {
			m.paused = false
		}
	}
}

func (m *model) handleControl(msg controlMsg) {
	if msg.err != nil {
		// pressing space while idle is not worth reporting
		if !errors.Is(msg.err, audio.ErrNotPlaying) && !errors.Is(msg.err, audio.ErrNotPaused) {
			m.lastErr = msg.err
		}
		return
	}
	switch msg.op {
	case opPause:
		m.paused = true
	case opResume:
		m.paused = false
	case opStop:
		m.setNote("stopped")
	case opFlush:
		m.setNote(fmt.Sprintf("flushed %d", msg.flushed))
	}
}

func (m *model) setNote(s string) {
	m.note = s
	m.noteAt = time.Now()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if line := m.speechLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.lastErr != nil {
		raw := truncate("error: "+m.lastErr.Error(), m.width)
		b.WriteString(errorStyle.Render(raw))
		b.WriteString("\n")
	}
	b.WriteString(m.helpLine())
	b.WriteString("\n")
	return b.String()
}

func (m model) statusLine() string {
	segs := make([]string, 0, 6)

	if m.cfg.Title != "" {
		segs = append(segs, titleStyle.Render(truncate(m.cfg.Title, m.width/3)))
	}

	icon, word, style := m.stateBadge()
	segs = append(segs, style.Render(icon+" "+word))

	if m.cfg.Total > 0 {
		n := m.done
		if m.active && n < m.cfg.Total {
			n++
		}
		segs = append(segs, subtleStyle.Render(fmt.Sprintf("%d/%d", n, m.cfg.Total)))
	} else if m.done > 0 {
		segs = append(segs, subtleStyle.Render(fmt.Sprintf("%d spoken", m.done)))
	}

	if m.duration > 0 {
		segs = append(segs, fmt.Sprintf("%s/%s", formatDuration(m.elapsed), formatDuration(m.duration)))
	}

	if m.queued > 0 {
		segs = append(segs, subtleStyle.Render(fmt.Sprintf("+%d queued", m.queued)))
	}

	if m.inflight > 0 {
		segs = append(segs, m.spinner.View()+spinnerStyle.Render(" synthesizing"))
	}

	if m.note != "" {
		segs = append(segs, subtleStyle.Render(m.note))
	}

	return strings.Join(segs, "  ")
}

func (m model) speechLine() string {
	if m.current == "" {
		return ""
	}
	raw := truncate("“"+m.current+"”", m.width)
	return speechStyle.Render(raw)
}

func (m model) helpLine() string {
	bindings := []key.Binding{m.keys.PauseResume, m.keys.Stop, m.keys.Flush, m.keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return subtleStyle.Render(strings.Join(parts, " · "))
}

func (m model) stateBadge() (icon, word string, style lipgloss.Style) {
	switch {
	case m.state == tts.StateStopped:
		return "■", "stopping", stoppingStyle
	case m.paused:
		return "⏸", "paused", pausedStyle
	case m.state == tts.StateRunning:
		return "▶", "playing", playingStyle
	default:
		return "○", "idle", idleStyle
	}
}

// truncate shortens s to fit in width terminal cells. Apply it before
// styling; escape sequences would be counted otherwise.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}

// formatDuration renders a duration as m:ss for the status line.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func waitForEvent(sub *tts.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-sub.Events()
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: e}
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func pauseResumeCmd(client *tts.Client, paused bool) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		if paused {
			return controlMsg{op: opResume, err: client.Resume()}
		}
		return controlMsg{op: opPause, err: client.Pause()}
	}
}

func stopCmd(client *tts.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		client.Stop()
		return controlMsg{op: opStop}
	}
}

func flushCmd(client *tts.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		return controlMsg{op: opFlush, flushed: client.FlushQueue()}
	}
}
