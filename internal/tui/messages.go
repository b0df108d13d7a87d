package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/lookout/internal/provision"
	"github.com/tinytelemetry/lookout/internal/session"
)

// PipelineAddedMsg reports a pipeline appended to the session registry.
type PipelineAddedMsg struct {
	Index    int
	Pipeline *provision.Pipeline
}

// ProvisionResultMsg carries the outcome of a provisioning request made
// from the shell.
type ProvisionResultMsg struct {
	Pipeline *provision.Pipeline
	Err      error
}

// PrefsChangedMsg reports the current show preference.
type PrefsChangedMsg struct {
	Show bool
}

// TickMsg drives periodic frame refresh.
type TickMsg time.Time

// Forward subscribes to reg and delivers every added event to send in
// registry order. Events queue without bound, so send may block without
// stalling Append.
func Forward(reg *session.Registry, send func(tea.Msg)) (stop func()) {
	sub := reg.SubscribeAsync(func(ev session.Event) {
		send(PipelineAddedMsg{Index: ev.Index, Pipeline: ev.Pipeline})
	})
	return sub.Stop
}
