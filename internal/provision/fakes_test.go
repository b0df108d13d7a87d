package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinytelemetry/lookout/internal/model"
)

// recorder collects the order in which collaborators are called.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

type fakeLogs struct {
	rec     *recorder
	names   map[string]bool
	nextID  int
	removed []model.LogHandle
}

func newFakeLogs(rec *recorder) *fakeLogs {
	return &fakeLogs{rec: rec, names: make(map[string]bool)}
}

func (l *fakeLogs) Add(name string) (model.LogHandle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.LogHandle{}, errors.New("empty name")
	}
	if l.names[name] {
		return model.LogHandle{}, errors.New("duplicate name")
	}
	l.names[name] = true
	l.nextID++
	l.rec.add("log.add %s", name)
	return model.LogHandle{ID: fmt.Sprintf("log-%d", l.nextID), Name: name}, nil
}

func (l *fakeLogs) Remove(h model.LogHandle) {
	delete(l.names, h.Name)
	l.removed = append(l.removed, h)
	l.rec.add("log.remove %s", h.Name)
}

type fakeFrame struct {
	rec   *recorder
	views []string
	log   model.LogHandle
}

func (f *fakeFrame) Bind(h model.LogHandle) error {
	if !f.log.IsZero() {
		return errors.New("already bound")
	}
	f.log = h
	f.rec.add("frame.bind %s", h.Name)
	return nil
}

func (f *fakeFrame) Log() model.LogHandle { return f.log }
func (f *fakeFrame) Views() []string      { return f.views }

type fakeFrames struct {
	rec *recorder
	err error
}

func (f *fakeFrames) Create(views []string) (Frame, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rec.add("frame.create %s", strings.Join(views, ","))
	return &fakeFrame{rec: f.rec, views: views}, nil
}

type fakeProvider struct {
	rec      *recorder
	typ      string
	settings ProviderSettings
	target   model.LogHandle
	state    ProviderState
	startErr error
}

func (p *fakeProvider) Type() string               { return p.typ }
func (p *fakeProvider) Settings() ProviderSettings { return p.settings }
func (p *fakeProvider) Target() model.LogHandle    { return p.target }
func (p *fakeProvider) State() ProviderState       { return p.state }
func (p *fakeProvider) Addr() string               { return p.settings.Address() }
func (p *fakeProvider) Errors() <-chan error       { return nil }

func (p *fakeProvider) SetTarget(h model.LogHandle) error {
	p.target = h
	p.rec.add("provider.target %s %s", p.typ, h.Name)
	return nil
}

func (p *fakeProvider) Start() error {
	if p.startErr != nil {
		return p.startErr
	}
	p.state = StateStarted
	p.rec.add("provider.start %s %d", p.typ, p.settings.Port)
	return nil
}

func (p *fakeProvider) Stop() { p.state = StateStopped }

type fakeProviders struct {
	rec *recorder
	// failPorts makes Start fail for providers on these ports.
	failPorts map[int]bool
	created   []*fakeProvider
}

func (f *fakeProviders) Create(typeID string, settings ProviderSettings) (Provider, error) {
	switch typeID {
	case ProviderNLogViewer, ProviderLog4Net:
	default:
		return nil, &UnknownProviderTypeError{Type: typeID}
	}
	p := &fakeProvider{rec: f.rec, typ: typeID, settings: settings}
	if f.failPorts[settings.Port] {
		p.startErr = errors.New("address in use")
	}
	f.created = append(f.created, p)
	return p, nil
}

type fakeSessions struct {
	rec       *recorder
	pipelines []*Pipeline
}

func (s *fakeSessions) Append(p *Pipeline) {
	s.pipelines = append(s.pipelines, p)
	s.rec.add("session.append %s", p.Name())
}

type harness struct {
	rec       *recorder
	logs      *fakeLogs
	frames    *fakeFrames
	providers *fakeProviders
	sessions  *fakeSessions
	outcomes  []Outcome
	orch      *Orchestrator
}

func newHarness() *harness {
	rec := &recorder{}
	h := &harness{
		rec:       rec,
		logs:      newFakeLogs(rec),
		frames:    &fakeFrames{rec: rec},
		providers: &fakeProviders{rec: rec, failPorts: map[int]bool{}},
		sessions:  &fakeSessions{rec: rec},
	}
	h.orch = New(h.logs, h.providers, h.frames, h.sessions,
		WithObserver(ObserverFunc(func(o Outcome) { h.outcomes = append(h.outcomes, o) })))
	return h
}
