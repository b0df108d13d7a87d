package tui

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/lookout/internal/frame"
	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/placement"
	"github.com/tinytelemetry/lookout/internal/prefs"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// PrefsStore is the part of the preferences store the shell uses.
type PrefsStore interface {
	Show() bool
	SetShow(show bool) error
	Path() string
}

// snapshotter is implemented by frames that can be rendered.
type snapshotter interface {
	Snapshot() frame.Snapshot
}

// SessionPage shows one tab per pipeline. The newest pipeline is selected
// whenever one is added.
type SessionPage struct {
	keys     KeyMap
	interval time.Duration

	pipelines []*provision.Pipeline
	selected  int

	prefs     PrefsStore
	window    prefs.Window
	placement *placement.Store
	restored  *placement.Placement
	sized     bool
	width     int
	height    int

	modal   string
	ticking bool
}

// SessionOptions configures the session page.
type SessionOptions struct {
	// Initial pipelines already in the registry when the shell starts.
	Initial        []*provision.Pipeline
	UpdateInterval time.Duration
	Prefs          PrefsStore
	Placement      *placement.Store
}

func NewSessionPage(opts SessionOptions) *SessionPage {
	interval := opts.UpdateInterval
	if interval <= 0 {
		interval = model.DefaultUpdateInterval
	}
	p := &SessionPage{
		keys:      DefaultKeyMap(),
		interval:  interval,
		selected:  -1,
		prefs:     opts.Prefs,
		placement: opts.Placement,
	}
	for _, pl := range opts.Initial {
		p.add(pl)
	}
	return p
}

func (p *SessionPage) ID() string { return PageSession }

func (p *SessionPage) Init() tea.Cmd {
	var cmds []tea.Cmd
	if !p.ticking {
		p.ticking = true
		cmds = append(cmds, p.tick())
	}
	if p.prefs != nil {
		show := p.prefs.Show()
		cmds = append(cmds, func() tea.Msg { return PrefsChangedMsg{Show: show} })
	}
	return tea.Batch(cmds...)
}

func (p *SessionPage) tick() tea.Cmd {
	return tea.Tick(p.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Selected returns the selected pipeline, or nil.
func (p *SessionPage) Selected() *provision.Pipeline {
	if p.selected < 0 || p.selected >= len(p.pipelines) {
		return nil
	}
	return p.pipelines[p.selected]
}

// Modal returns the message of the open error modal.
func (p *SessionPage) Modal() string { return p.modal }

// PrefsOpen reports whether the preferences window is shown.
func (p *SessionPage) PrefsOpen() bool { return p.window.State() == prefs.WindowOpen }

func (p *SessionPage) add(pl *provision.Pipeline) {
	for i, existing := range p.pipelines {
		if existing == pl {
			p.selected = i
			return
		}
	}
	p.pipelines = append(p.pipelines, pl)
	p.selected = len(p.pipelines) - 1
}

func (p *SessionPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		if !p.sized {
			p.sized = true
			p.restorePlacement()
		}
		return nil, nil

	case TickMsg:
		return p.tick(), nil

	case PipelineAddedMsg:
		p.add(msg.Pipeline)
		return nil, nil

	case ProvisionResultMsg:
		if msg.Err != nil {
			p.modal = provision.UserMessage(msg.Err)
		}
		if msg.Pipeline != nil {
			p.add(msg.Pipeline)
		}
		return nil, nil

	case PrefsChangedMsg:
		switch p.window.Observe(msg.Show) {
		case prefs.Opened:
			log.Printf("tui: preferences window opened")
		case prefs.Closed:
			log.Printf("tui: preferences window closed")
		}
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *SessionPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	if key.Matches(msg, p.keys.ForceQuit) {
		return p.quit(), nil
	}
	if p.modal != "" {
		if key.Matches(msg, p.keys.Escape) || msg.String() == "enter" {
			p.modal = ""
		}
		return nil, nil
	}

	switch {
	case key.Matches(msg, p.keys.Quit):
		return p.quit(), nil
	case key.Matches(msg, p.keys.NewSource):
		return nil, &PageNav{PageID: PageWizard}
	case key.Matches(msg, p.keys.Preferences):
		return p.togglePrefs(!p.PrefsOpen()), nil
	case key.Matches(msg, p.keys.Escape):
		if p.PrefsOpen() {
			return p.togglePrefs(false), nil
		}
	case key.Matches(msg, p.keys.NextTab):
		if n := len(p.pipelines); n > 0 {
			p.selected = (p.selected + 1) % n
		}
	case key.Matches(msg, p.keys.PrevTab):
		if n := len(p.pipelines); n > 0 {
			p.selected = (p.selected - 1 + n) % n
		}
	}
	return nil, nil
}

// togglePrefs writes the preference and reports the new value; the file
// watcher may report it again, which the window state machine ignores.
func (p *SessionPage) togglePrefs(show bool) tea.Cmd {
	if p.prefs == nil {
		return func() tea.Msg { return PrefsChangedMsg{Show: show} }
	}
	store := p.prefs
	return func() tea.Msg {
		if err := store.SetShow(show); err != nil {
			log.Printf("tui: save preferences: %v", err)
		}
		return PrefsChangedMsg{Show: show}
	}
}

func (p *SessionPage) restorePlacement() {
	if p.placement == nil {
		return
	}
	bounds := placement.Rect{Left: 0, Top: 0, Width: p.width, Height: p.height}
	restored, err := p.placement.Load(bounds)
	if err != nil {
		log.Printf("tui: %v", err)
		return
	}
	p.restored = restored
	if restored != nil && (restored.Width != p.width || restored.Height != p.height) {
		log.Printf("tui: terminal is %dx%d, last session was %dx%d", p.width, p.height, restored.Width, restored.Height)
	}
}

func (p *SessionPage) savePlacement() {
	if p.placement == nil || !p.sized {
		return
	}
	pl := placement.Placement{Width: p.width, Height: p.height, WindowState: placement.Normal}
	if err := p.placement.Save(pl); err != nil {
		log.Printf("tui: %v", err)
	}
}

func (p *SessionPage) quit() tea.Cmd {
	p.savePlacement()
	return tea.Quit
}

func (p *SessionPage) View(width, height int) string {
	if width <= 0 || height <= 0 {
		width, height = 80, 24
	}

	tabs := p.renderTabs(width)
	status := p.renderStatus(width)
	bodyHeight := height - lipgloss.Height(tabs) - lipgloss.Height(status)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	var body string
	switch {
	case p.modal != "":
		body = p.renderModal(width, bodyHeight)
	case p.PrefsOpen():
		body = p.renderPrefs(width, bodyHeight)
	default:
		body = p.renderFrame(width, bodyHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabs, body, status)
}

func (p *SessionPage) renderTabs(width int) string {
	if len(p.pipelines) == 0 {
		return tabStyle.Render("lookout")
	}
	var parts []string
	for i, pl := range p.pipelines {
		label := fmt.Sprintf("%d %s", i+1, pl.Name())
		if i == p.selected {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (p *SessionPage) renderStatus(width int) string {
	left := "no sources"
	if pl := p.Selected(); pl != nil {
		var addrs []string
		for _, pr := range pl.Providers {
			addrs = append(addrs, fmt.Sprintf("%s %s %s", pr.Type(), pr.Settings().Transport(), pr.Addr()))
		}
		left = fmt.Sprintf("%d/%d providers", len(pl.Providers), pl.Requested)
		if len(addrs) > 0 {
			left += "  " + strings.Join(addrs, ", ")
		}
	}
	right := strings.Join(ShortHelp(p.keys.NewSource, p.keys.NextTab, p.keys.Preferences, p.keys.Quit), " | ")
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusStyle.Width(width).Render(" " + left + strings.Repeat(" ", gap) + right)
}

func (p *SessionPage) renderModal(width, height int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorRed).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			errorStyle.Render("Error"),
			"",
			p.modal,
			"",
			helpStyle.Render("esc/enter: close"),
		))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (p *SessionPage) renderPrefs(width, height int) string {
	lines := []string{chartTitleStyle.Render("Preferences"), ""}
	if p.prefs != nil {
		lines = append(lines, labelStyle.Render("File")+p.prefs.Path())
	}
	lines = append(lines, labelStyle.Render("Sources")+fmt.Sprint(len(p.pipelines)))
	if p.restored != nil {
		lines = append(lines, labelStyle.Render("Last size")+fmt.Sprintf("%dx%d", p.restored.Width, p.restored.Height))
	}
	lines = append(lines, "", helpStyle.Render("p/esc: close"))
	return sectionStyle.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

func (p *SessionPage) renderFrame(width, height int) string {
	pl := p.Selected()
	if pl == nil {
		msg := lipgloss.JoinVertical(lipgloss.Center,
			"No log sources yet.",
			helpStyle.Render("Press n to add one, or start lookout with "+provision.Usage),
		)
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, msg)
	}
	fr, ok := pl.Frame.(snapshotter)
	if !ok {
		return helpStyle.Render("This frame cannot be displayed.")
	}
	snap := fr.Snapshot()

	views := snap.Views
	sectionHeight := height/len(views) - 2
	if sectionHeight < 3 {
		sectionHeight = 3
	}
	inner := width - 4
	var sections []string
	for _, v := range views {
		var content string
		switch v {
		case frame.ViewMessages:
			content = renderRecords("Messages", snap.Messages, inner, sectionHeight)
		case frame.ViewWarnings:
			content = renderRecords("Warnings", snap.Warnings, inner, sectionHeight)
		case frame.ViewCounts:
			content = renderCounts(snap.Counts, inner, sectionHeight)
		}
		sections = append(sections, sectionStyle.Width(width-2).Render(content))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderRecords shows the newest records that fit, oldest at the top.
func renderRecords(title string, recs []*model.LogRecord, width, height int) string {
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	if len(recs) > rows {
		recs = recs[len(recs)-rows:]
	}
	lines := []string{chartTitleStyle.Render(title)}
	if len(recs) == 0 {
		lines = append(lines, helpStyle.Render("Waiting for events..."))
	}
	for _, r := range recs {
		level := strings.ToUpper(r.Level)
		lvl := lipgloss.NewStyle().Foreground(severityColor(level)).Render(fmt.Sprintf("%-5s", level))
		line := fmt.Sprintf("%s %s %s %s", r.Timestamp.Format("15:04:05.000"), lvl, r.Logger, r.Message)
		lines = append(lines, lipgloss.NewStyle().MaxWidth(width).Render(line))
	}
	return strings.Join(lines, "\n")
}
