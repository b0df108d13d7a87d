// Package providers implements the network listeners that feed logs and the
// registry that builds them by type identifier.
package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// Provider type identifiers beyond the two command-line providers.
const (
	TypeNLogViewer = provision.ProviderNLogViewer
	TypeLog4Net    = provision.ProviderLog4Net
	TypeOTLP       = "OTLPProvider"
	TypeOTelJSON   = "OTelJSONProvider"
)

// Sink receives decoded records for the log a provider targets.
type Sink interface {
	Accept(h model.LogHandle, rec *model.LogRecord)
}

// Factory builds an unstarted provider.
type Factory func(settings provision.ProviderSettings) (provision.Provider, error)

// Registration describes one provider type.
type Registration struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Factory     Factory `json:"-"`
}

// Registry maps type identifiers to factories.
type Registry struct {
	mu   sync.RWMutex
	regs map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{regs: make(map[string]Registration)}
}

// Register adds a provider type. Registering a type twice is an error.
func (r *Registry) Register(reg Registration) error {
	if reg.Type == "" {
		return fmt.Errorf("providers: registration without type")
	}
	if reg.Factory == nil {
		return fmt.Errorf("providers: %s has no factory", reg.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.regs[reg.Type]; ok {
		return fmt.Errorf("providers: %s already registered", reg.Type)
	}
	r.regs[reg.Type] = reg
	return nil
}

// Create builds a provider of the given type.
func (r *Registry) Create(typeID string, settings provision.ProviderSettings) (provision.Provider, error) {
	r.mu.RLock()
	reg, ok := r.regs[typeID]
	r.mu.RUnlock()

	if !ok {
		return nil, &provision.UnknownProviderTypeError{Type: typeID}
	}
	return reg.Factory(settings)
}

// Types lists the registrations sorted by type.
func (r *Registry) Types() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(r.regs))
	for _, reg := range r.regs {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Config holds settings shared by the built-in providers.
type Config struct {
	// ListenHost is used when provider settings carry no host.
	ListenHost     string
	ChannelSize    int
	MaxPayloadSize int
}

func (c Config) host(s provision.ProviderSettings) string {
	if s.Host != "" {
		return s.Host
	}
	if c.ListenHost != "" {
		return c.ListenHost
	}
	return model.DefaultListenHost
}

// NewDefaultRegistry registers every built-in provider against sink.
func NewDefaultRegistry(sink Sink, conf ...Config) *Registry {
	var cfg Config
	if len(conf) > 0 {
		cfg = conf[0]
	}

	r := NewRegistry()
	builtins := []Registration{
		{
			Type:        TypeNLogViewer,
			Description: "NLog viewer target (log4j XML over UDP or TCP)",
			Factory: func(s provision.ProviderSettings) (provision.Provider, error) {
				return newLog4jProvider(TypeNLogViewer, s, sink, cfg, true), nil
			},
		},
		{
			Type:        TypeLog4Net,
			Description: "log4net UdpAppender (log4j XML over UDP)",
			Factory: func(s provision.ProviderSettings) (provision.Provider, error) {
				return newLog4jProvider(TypeLog4Net, s, sink, cfg, false), nil
			},
		},
		{
			Type:        TypeOTLP,
			Description: "OpenTelemetry OTLP/gRPC logs receiver",
			Factory: func(s provision.ProviderSettings) (provision.Provider, error) {
				return newOTLPProvider(s, sink, cfg), nil
			},
		},
		{
			Type:        TypeOTelJSON,
			Description: "OpenTelemetry OTLP/JSON logs, one request per line over TCP",
			Factory: func(s provision.ProviderSettings) (provision.Provider, error) {
				return newOTelJSONProvider(s, sink, cfg), nil
			},
		},
	}
	for _, reg := range builtins {
		if err := r.Register(reg); err != nil {
			panic(err)
		}
	}
	return r
}
