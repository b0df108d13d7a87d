package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/lookout/internal/providers"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// Provisioner turns a source description into a registered pipeline.
type Provisioner interface {
	Provision(desc provision.SourceDescription) (*provision.Pipeline, error)
}

// Catalog lists the provider types the wizard can offer.
type Catalog interface {
	Types() []providers.Registration
}

const (
	fieldName = iota
	fieldType
	fieldTransport
	fieldHost
	fieldPort
	fieldViews
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Provider", "Transport", "Host", "Port", "Views"}

// WizardPage collects a named log with one or more providers and
// provisions it.
type WizardPage struct {
	keys        KeyMap
	provisioner Provisioner
	types       []string
	transports  []string

	inputs [fieldCount]textinput.Model
	focus  int
	err    string
	// added holds the providers confirmed with AddProvider, in order.
	added []provision.ProviderSpec
}

func NewWizardPage(p Provisioner, catalog Catalog) *WizardPage {
	w := &WizardPage{
		keys:        DefaultKeyMap(),
		provisioner: p,
		transports:  []string{string(provision.TransportUDP), string(provision.TransportTCP)},
	}
	if catalog != nil {
		for _, reg := range catalog.Types() {
			w.types = append(w.types, reg.Type)
		}
	}
	if len(w.types) == 0 {
		w.types = []string{provision.ProviderNLogViewer}
	}
	for i := range w.inputs {
		in := textinput.New()
		in.CharLimit = 200
		w.inputs[i] = in
	}
	w.inputs[fieldName].Placeholder = "name shown on the tab"
	w.inputs[fieldHost].Placeholder = "all interfaces"
	w.inputs[fieldPort].Placeholder = "e.g. 4000"
	w.inputs[fieldViews].Placeholder = "messages, counts, warnings"
	w.reset()
	return w
}

func (w *WizardPage) ID() string { return PageWizard }

func (w *WizardPage) Init() tea.Cmd { return textinput.Blink }

// Enter clears the form whenever the wizard is opened.
func (w *WizardPage) Enter(params interface{}) { w.reset() }

func (w *WizardPage) reset() {
	for i := range w.inputs {
		w.inputs[i].SetValue("")
	}
	w.inputs[fieldType].SetValue(w.types[0])
	w.inputs[fieldTransport].SetValue(w.transports[0])
	w.inputs[fieldViews].SetValue(provision.DefaultView)
	w.err = ""
	w.added = nil
	w.setFocus(fieldName)
}

// resetProvider clears the provider fields for the next provider, keeping
// the name and views.
func (w *WizardPage) resetProvider() {
	w.inputs[fieldType].SetValue(w.types[0])
	w.inputs[fieldTransport].SetValue(w.transports[0])
	w.inputs[fieldHost].SetValue("")
	w.inputs[fieldPort].SetValue("")
	w.err = ""
	w.setFocus(fieldType)
}

func (w *WizardPage) setFocus(i int) {
	w.inputs[w.focus].Blur()
	w.focus = (i + fieldCount) % fieldCount
	w.inputs[w.focus].Focus()
}

// Added returns the providers confirmed so far.
func (w *WizardPage) Added() []provision.ProviderSpec {
	return append([]provision.ProviderSpec(nil), w.added...)
}

// provider reads the provider fields of the form.
func (w *WizardPage) provider() (provision.ProviderSpec, error) {
	typ := strings.TrimSpace(w.inputs[fieldType].Value())
	if typ == "" {
		return provision.ProviderSpec{}, fmt.Errorf("provider type is required")
	}
	transport, ok := provision.ParseTransport(strings.TrimSpace(w.inputs[fieldTransport].Value()))
	if !ok {
		return provision.ProviderSpec{}, fmt.Errorf("transport must be udp or tcp")
	}
	port, err := strconv.Atoi(strings.TrimSpace(w.inputs[fieldPort].Value()))
	if err != nil || port < 0 || port > 65535 {
		return provision.ProviderSpec{}, fmt.Errorf("port must be a number between 0 and 65535")
	}
	return provision.ProviderSpec{
		Type: typ,
		Settings: provision.ProviderSettings{
			Host: strings.TrimSpace(w.inputs[fieldHost].Value()),
			Port: port,
			UDP:  transport == provision.TransportUDP,
		},
	}, nil
}

// addProvider confirms the provider in the form and clears the provider
// fields for another one.
func (w *WizardPage) addProvider() {
	spec, err := w.provider()
	if err != nil {
		w.err = err.Error()
		return
	}
	w.added = append(w.added, spec)
	w.resetProvider()
}

// Description builds the wizard description from the form. The providers
// are the confirmed ones followed by the one being edited. Once at least one
// provider is confirmed, an empty port leaves the edited one out.
func (w *WizardPage) Description() (provision.WizardDescription, error) {
	name := strings.TrimSpace(w.inputs[fieldName].Value())
	if name == "" {
		return provision.WizardDescription{}, fmt.Errorf("name is required")
	}
	specs := append([]provision.ProviderSpec(nil), w.added...)
	if len(specs) == 0 || strings.TrimSpace(w.inputs[fieldPort].Value()) != "" {
		spec, err := w.provider()
		if err != nil {
			return provision.WizardDescription{}, err
		}
		specs = append(specs, spec)
	}
	var views []string
	for _, v := range strings.Split(w.inputs[fieldViews].Value(), ",") {
		if v = strings.TrimSpace(v); v != "" {
			views = append(views, v)
		}
	}
	return provision.WizardDescription{
		Name:      name,
		Views:     views,
		Providers: specs,
	}, nil
}

func (w *WizardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		w.inputs[w.focus], cmd = w.inputs[w.focus].Update(msg)
		return cmd, nil
	}

	switch {
	case key.Matches(km, w.keys.ForceQuit):
		return tea.Quit, nil
	case key.Matches(km, w.keys.Escape):
		return nil, &PageNav{PageID: PageSession}
	case key.Matches(km, w.keys.Cycle):
		w.cycle()
		return nil, nil
	case key.Matches(km, w.keys.AddProvider):
		w.addProvider()
		return nil, nil
	case key.Matches(km, w.keys.Submit):
		if w.focus < fieldCount-1 {
			w.setFocus(w.focus + 1)
			return nil, nil
		}
		return w.submit()
	case key.Matches(km, w.keys.NextField):
		w.setFocus(w.focus + 1)
		return nil, nil
	case key.Matches(km, w.keys.PrevField):
		w.setFocus(w.focus - 1)
		return nil, nil
	}

	var cmd tea.Cmd
	w.inputs[w.focus], cmd = w.inputs[w.focus].Update(msg)
	return cmd, nil
}

func (w *WizardPage) cycle() {
	var choices []string
	switch w.focus {
	case fieldType:
		choices = w.types
	case fieldTransport:
		choices = w.transports
	default:
		return
	}
	cur := w.inputs[w.focus].Value()
	next := choices[0]
	for i, c := range choices {
		if c == cur {
			next = choices[(i+1)%len(choices)]
			break
		}
	}
	w.inputs[w.focus].SetValue(next)
	w.inputs[w.focus].CursorEnd()
}

func (w *WizardPage) submit() (tea.Cmd, *PageNav) {
	desc, err := w.Description()
	if err != nil {
		w.err = err.Error()
		return nil, nil
	}
	p := w.provisioner
	cmd := func() tea.Msg {
		pl, err := p.Provision(desc)
		return ProvisionResultMsg{Pipeline: pl, Err: err}
	}
	return cmd, &PageNav{PageID: PageSession}
}

func (w *WizardPage) View(width, height int) string {
	lines := []string{chartTitleStyle.Render("New log source"), ""}
	for i, spec := range w.added {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("provider %d: %s %s port %d",
			i+1, spec.Type, spec.Settings.Transport(), spec.Settings.Port)))
	}
	if len(w.added) > 0 {
		lines = append(lines, "")
	}
	for i, in := range w.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == w.focus {
			label = labelStyle.Foreground(ColorBlue).Bold(true).Render(fieldLabels[i])
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label, " ", in.View()))
	}
	if w.err != "" {
		lines = append(lines, "", errorStyle.Render(w.err))
	}
	lines = append(lines, "", helpStyle.Render(strings.Join(
		ShortHelp(w.keys.NextField, w.keys.Cycle, w.keys.AddProvider, w.keys.Submit, w.keys.Escape), " | ")))
	box := sectionStyle.Render(strings.Join(lines, "\n"))
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
