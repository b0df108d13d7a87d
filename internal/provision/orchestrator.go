package provision

import (
	"fmt"
	"log"
	"time"
)

// Outcome summarizes one provisioning attempt for observers.
type Outcome struct {
	Name      string
	Kind      Kind
	Requested int
	Started   int
	Err       error
	At        time.Time
}

// Observer is notified after every provisioning attempt, successful or not.
type Observer interface {
	Observe(o Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Outcome)

func (f ObserverFunc) Observe(o Outcome) { f(o) }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver adds an observer of provisioning outcomes.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithClock overrides the time source used for pipeline timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator turns source descriptions into running pipelines.
type Orchestrator struct {
	logs      LogRegistry
	providers ProviderRegistry
	frames    FrameFactory
	sessions  SessionRegistry
	observers []Observer
	now       func() time.Time
}

// New wires an orchestrator to its collaborators.
func New(logs LogRegistry, providers ProviderRegistry, frames FrameFactory, sessions SessionRegistry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logs:      logs,
		providers: providers,
		frames:    frames,
		sessions:  sessions,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Provision builds a pipeline for desc and appends it to the session
// registry. A non-nil pipeline with a *ProvisionError means some providers
// failed; the pipeline is still registered and displayed. A nil pipeline
// means nothing was registered.
func (o *Orchestrator) Provision(desc SourceDescription) (*Pipeline, error) {
	switch d := desc.(type) {
	case WizardDescription:
		return o.provision(d, KindWizard)
	case *WizardDescription:
		if d == nil {
			return nil, fmt.Errorf("provision: nil wizard description")
		}
		return o.provision(*d, KindWizard)
	case CommandLineDescription:
		return o.provisionCommandLine(d)
	case *CommandLineDescription:
		if d == nil {
			return nil, fmt.Errorf("provision: nil command-line description")
		}
		return o.provisionCommandLine(*d)
	}
	return nil, fmt.Errorf("provision: unsupported description %T", desc)
}

func (o *Orchestrator) provisionCommandLine(d CommandLineDescription) (*Pipeline, error) {
	if err := d.Validate(); err != nil {
		o.notify(Outcome{Name: d.DisplayName(), Kind: KindCommandLine, Requested: 1, Err: err})
		return nil, err
	}
	log.Printf("provision: requested listener %s, %s on port %d", d.Family, d.Transport, d.Port)
	return o.provision(d.Wizard(), KindCommandLine)
}

func (o *Orchestrator) provision(d WizardDescription, kind Kind) (*Pipeline, error) {
	requested := len(d.Providers)

	handle, err := o.logs.Add(d.Name)
	if err != nil {
		err = &LogCreationError{Name: d.Name, Err: err}
		o.notify(Outcome{Name: d.Name, Kind: kind, Requested: requested, Err: err})
		return nil, err
	}

	// The frame is bound before any provider starts so no event can
	// arrive for a log nobody displays.
	frame, err := o.frames.Create(d.Views)
	if err == nil {
		err = frame.Bind(handle)
	}
	if err != nil {
		o.logs.Remove(handle)
		err = &FrameCreationError{Views: d.Views, Err: err}
		o.notify(Outcome{Name: handle.Name, Kind: kind, Requested: requested, Err: err})
		return nil, err
	}

	p := &Pipeline{
		Log:         handle,
		Frame:       frame,
		Description: d,
		Kind:        kind,
		Requested:   requested,
		Created:     o.now(),
	}

	var failures []error
	for i, spec := range d.Providers {
		pr, err := o.startProvider(i, spec, p)
		if err != nil {
			log.Printf("provision: %q provider %d (%s) failed: %v", handle.Name, i+1, spec.Type, err)
			failures = append(failures, err)
			continue
		}
		p.Providers = append(p.Providers, pr)
	}

	o.sessions.Append(p)

	var result error
	if len(failures) > 0 {
		result = &ProvisionError{
			Name:      handle.Name,
			Started:   len(p.Providers),
			Requested: requested,
			Failures:  failures,
		}
	}
	o.notify(Outcome{Name: handle.Name, Kind: kind, Requested: requested, Started: len(p.Providers), Err: result})
	return p, result
}

func (o *Orchestrator) startProvider(i int, spec ProviderSpec, p *Pipeline) (Provider, error) {
	pr, err := o.providers.Create(spec.Type, spec.Settings)
	if err != nil {
		return nil, &StartError{Type: spec.Type, Index: i, Err: err}
	}
	if err := pr.SetTarget(p.Log); err != nil {
		pr.Stop()
		return nil, &StartError{Type: spec.Type, Index: i, Err: err}
	}
	if err := pr.Start(); err != nil {
		pr.Stop()
		return nil, &StartError{Type: spec.Type, Index: i, Err: err}
	}
	return pr, nil
}

func (o *Orchestrator) notify(out Outcome) {
	if out.At.IsZero() {
		out.At = o.now()
	}
	for _, obs := range o.observers {
		obs.Observe(out)
	}
}
