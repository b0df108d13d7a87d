package provision

import (
	"time"

	"github.com/tinytelemetry/lookout/internal/model"
)

// ProviderState is the lifecycle position of a provider.
type ProviderState int

const (
	StateCreated ProviderState = iota
	StateStarted
	StateStopped
)

func (s ProviderState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Provider feeds received log events into the log it is targeted at.
type Provider interface {
	Type() string
	Settings() ProviderSettings
	SetTarget(h model.LogHandle) error
	Target() model.LogHandle
	Start() error
	Stop()
	State() ProviderState
	Addr() string
	Errors() <-chan error
}

// Frame is the displayed container of views bound to one log.
type Frame interface {
	Bind(h model.LogHandle) error
	Log() model.LogHandle
	Views() []string
}

// LogRegistry creates and releases named logs.
type LogRegistry interface {
	Add(name string) (model.LogHandle, error)
	Remove(h model.LogHandle)
}

// ProviderRegistry builds providers from a type identifier.
type ProviderRegistry interface {
	Create(typeID string, settings ProviderSettings) (Provider, error)
}

// FrameFactory builds an unbound frame for a list of view identifiers.
type FrameFactory interface {
	Create(views []string) (Frame, error)
}

// SessionRegistry receives every pipeline that reached the frame stage.
type SessionRegistry interface {
	Append(p *Pipeline)
}

// Pipeline is one provisioned source: a log, the providers that started,
// and the frame bound to the log.
type Pipeline struct {
	Log         model.LogHandle
	Providers   []Provider
	Frame       Frame
	Description WizardDescription
	Kind        Kind
	Requested   int
	Created     time.Time
}

// Name is the display name of the pipeline's log.
func (p *Pipeline) Name() string { return p.Log.Name }

// Complete reports whether every requested provider started.
func (p *Pipeline) Complete() bool { return len(p.Providers) == p.Requested }

// Stop halts every provider of the pipeline.
func (p *Pipeline) Stop() {
	for _, pr := range p.Providers {
		pr.Stop()
	}
}
