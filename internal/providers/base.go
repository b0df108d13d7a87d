package providers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tinytelemetry/lookout/internal/metrics"
	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/provision"
)

var (
	ErrAlreadyStarted       = errors.New("provider already started")
	ErrNoTarget             = errors.New("provider has no target log")
	ErrStopped              = errors.New("provider stopped")
	ErrUnsupportedTransport = errors.New("transport not supported")
)

// lifecycle holds what every provider shares: settings, target, state and
// the asynchronous error channel.
type lifecycle struct {
	typ      string
	settings provision.ProviderSettings
	sink     Sink

	mu     sync.Mutex
	target model.LogHandle
	state  provision.ProviderState
	errs   chan error
}

func newLifecycle(typ string, s provision.ProviderSettings, sink Sink) *lifecycle {
	return &lifecycle{
		typ:      typ,
		settings: s,
		sink:     sink,
		errs:     make(chan error, 16),
	}
}

func (l *lifecycle) Type() string                         { return l.typ }
func (l *lifecycle) Settings() provision.ProviderSettings { return l.settings }
func (l *lifecycle) Errors() <-chan error                 { return l.errs }

func (l *lifecycle) SetTarget(h model.LogHandle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != provision.StateCreated {
		return ErrAlreadyStarted
	}
	l.target = h
	return nil
}

func (l *lifecycle) Target() model.LogHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

func (l *lifecycle) State() provision.ProviderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// beginStart checks that the provider may start. Callers hold l.mu.
func (l *lifecycle) beginStart() error {
	switch l.state {
	case provision.StateStarted:
		return ErrAlreadyStarted
	case provision.StateStopped:
		return ErrStopped
	}
	if l.target.IsZero() {
		return ErrNoTarget
	}
	return nil
}

func (l *lifecycle) report(err error) {
	select {
	case l.errs <- fmt.Errorf("%s: %w", l.typ, err):
	default:
	}
}

func (l *lifecycle) deliver(target model.LogHandle, recs []*model.LogRecord) {
	for _, rec := range recs {
		if rec.Source == "" {
			rec.Source = l.typ
		}
		l.sink.Accept(target, rec)
	}
	metrics.RecordsReceivedTotal.WithLabelValues(l.typ).Add(float64(len(recs)))
}

func (l *lifecycle) decodeFailed(err error) {
	metrics.DecodeErrorsTotal.WithLabelValues(l.typ).Inc()
	l.report(err)
}
