package tui

import tea "github.com/charmbracelet/bubbletea"

// App is the top-level Bubble Tea model that routes between pages.
// Keyboard and mouse input goes to the active page only; every other
// message reaches all pages so background pages stay current.
type App struct {
	pages      map[string]Page
	order      []string
	activePage string
	width      int
	height     int
}

// NewApp creates a new App with the given pages. The first page is the default.
func NewApp(pages ...Page) *App {
	pageMap := make(map[string]Page, len(pages))
	order := make([]string, 0, len(pages))
	for _, p := range pages {
		pageMap[p.ID()] = p
		order = append(order, p.ID())
	}
	a := &App{pages: pageMap, order: order}
	if len(order) > 0 {
		a.activePage = order[0]
	}
	return a
}

// ActivePage returns the id of the page receiving input.
func (a *App) ActivePage() string { return a.activePage }

// Init starts every page so background pages refresh before they are shown.
func (a *App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.order))
	for _, id := range a.order {
		cmds = append(cmds, a.pages[id].Init())
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = wsm.Width
		a.height = wsm.Height
	}

	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		p, ok := a.pages[a.activePage]
		if !ok {
			return a, nil
		}
		cmd, nav := p.Update(msg)
		return a, a.navigate(cmd, nav)
	}

	var cmds []tea.Cmd
	var nav *PageNav
	for _, id := range a.order {
		cmd, n := a.pages[id].Update(msg)
		cmds = append(cmds, cmd)
		if n != nil && id == a.activePage {
			nav = n
		}
	}
	return a, a.navigate(tea.Batch(cmds...), nav)
}

func (a *App) navigate(cmd tea.Cmd, nav *PageNav) tea.Cmd {
	if nav == nil {
		return cmd
	}
	next, exists := a.pages[nav.PageID]
	if !exists {
		return cmd
	}
	a.activePage = nav.PageID
	if r, ok := next.(interface{ Enter(params interface{}) }); ok {
		r.Enter(nav.Params)
	}
	return tea.Batch(cmd, next.Init())
}

func (a *App) View() string {
	if p, ok := a.pages[a.activePage]; ok {
		return p.View(a.width, a.height)
	}
	return "No active page"
}
