package tui

import (
	"time"

	"github.com/tinytelemetry/lookout/internal/placement"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// Options wires the shell to the running session.
type Options struct {
	Provisioner    Provisioner
	Catalog        Catalog
	Initial        []*provision.Pipeline
	Prefs          PrefsStore
	Placement      *placement.Store
	UpdateInterval time.Duration
	// StartInWizard opens the source wizard instead of the session tabs.
	StartInWizard bool
}

// New builds the shell: the session page first, then the source wizard.
func New(opts Options) *App {
	app := NewApp(
		NewSessionPage(SessionOptions{
			Initial:        opts.Initial,
			UpdateInterval: opts.UpdateInterval,
			Prefs:          opts.Prefs,
			Placement:      opts.Placement,
		}),
		NewWizardPage(opts.Provisioner, opts.Catalog),
	)
	if opts.StartInWizard {
		app.activePage = PageWizard
	}
	return app
}
