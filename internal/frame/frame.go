// Package frame builds the display surfaces that show one log each.
package frame

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tinytelemetry/lookout/internal/logparse"
	"github.com/tinytelemetry/lookout/internal/logregistry"
	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// View identifiers.
const (
	ViewMessages = "messages"
	ViewCounts   = "counts"
	ViewWarnings = "warnings"
)

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrAlreadyBound = errors.New("frame already bound")
)

// Views lists the known view identifiers in display order.
var Views = []string{ViewMessages, ViewCounts, ViewWarnings}

// Binder attaches a consumer to a log.
type Binder interface {
	Bind(h model.LogHandle, c logregistry.Consumer) error
}

// Config tunes the frames a factory builds.
type Config struct {
	// Buffer is the number of records each ring view keeps.
	Buffer int
}

// Factory builds frames and wires them to the log registry on Bind.
type Factory struct {
	logs   Binder
	buffer int
}

func NewFactory(logs Binder, conf ...Config) *Factory {
	f := &Factory{logs: logs, buffer: model.DefaultViewBuffer}
	if len(conf) > 0 && conf[0].Buffer > 0 {
		f.buffer = conf[0].Buffer
	}
	return f
}

// New builds an unbound frame. An empty view list yields the messages view.
func (f *Factory) New(views []string) (*Frame, error) {
	if len(views) == 0 {
		views = []string{ViewMessages}
	}
	fr := &Frame{
		logs:   f.logs,
		views:  append([]string(nil), views...),
		counts: make(map[string]int),
	}
	for _, v := range fr.views {
		switch v {
		case ViewMessages:
			fr.messages = newRing(f.buffer)
		case ViewWarnings:
			fr.warnings = newRing(f.buffer)
		case ViewCounts:
			fr.hasCounts = true
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownView, v)
		}
	}
	return fr, nil
}

// Create satisfies provision.FrameFactory.
func (f *Factory) Create(views []string) (provision.Frame, error) {
	fr, err := f.New(views)
	if err != nil {
		return nil, err
	}
	return fr, nil
}

// Frame is bound to exactly one log and keeps per-view state for rendering.
type Frame struct {
	logs  Binder
	views []string

	mu        sync.RWMutex
	log       model.LogHandle
	messages  *ring
	warnings  *ring
	hasCounts bool
	counts    map[string]int
	total     uint64
}

// Bind attaches the frame to h. A frame binds once.
func (f *Frame) Bind(h model.LogHandle) error {
	f.mu.Lock()
	if !f.log.IsZero() {
		f.mu.Unlock()
		return ErrAlreadyBound
	}
	f.log = h
	f.mu.Unlock()

	if f.logs == nil {
		return nil
	}
	if err := f.logs.Bind(h, f); err != nil {
		f.mu.Lock()
		f.log = model.LogHandle{}
		f.mu.Unlock()
		return fmt.Errorf("bind %s: %w", h, err)
	}
	return nil
}

func (f *Frame) Log() model.LogHandle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.log
}

func (f *Frame) Views() []string {
	return append([]string(nil), f.views...)
}

// Consume appends rec to every view of the frame.
func (f *Frame) Consume(rec *model.LogRecord) {
	if rec == nil {
		return
	}
	level := logparse.NormalizeSeverity(rec.Level)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.total++
	if f.messages != nil {
		f.messages.push(rec)
	}
	if f.warnings != nil && logparse.AtLeast(level, "WARN") {
		f.warnings.push(rec)
	}
	if f.hasCounts {
		f.counts[level]++
	}
}

// Snapshot is a point-in-time copy of a frame's views.
type Snapshot struct {
	Log      model.LogHandle
	Views    []string
	Total    uint64
	Messages []*model.LogRecord
	Warnings []*model.LogRecord
	Counts   map[string]int
}

func (f *Frame) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := Snapshot{Log: f.log, Views: f.Views(), Total: f.total}
	if f.messages != nil {
		s.Messages = f.messages.items()
	}
	if f.warnings != nil {
		s.Warnings = f.warnings.items()
	}
	if f.hasCounts {
		s.Counts = make(map[string]int, len(f.counts))
		for k, v := range f.counts {
			s.Counts[k] = v
		}
	}
	return s
}
