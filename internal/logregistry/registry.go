// Package logregistry owns the set of named logs that providers write into
// and frames read from.
package logregistry

import (
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinytelemetry/lookout/internal/metrics"
	"github.com/tinytelemetry/lookout/internal/model"
)

var (
	ErrInvalidName   = errors.New("log name is empty")
	ErrDuplicateName = errors.New("log name already in use")
	ErrUnknownLog    = errors.New("unknown log")
)

// Consumer receives every record accepted for the log it is bound to.
type Consumer interface {
	Consume(rec *model.LogRecord)
}

type entry struct {
	handle   model.LogHandle
	consumer Consumer
	records  uint64
}

// Registry maps log handles to their consumers. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	names   map[string]string
	dropped uint64
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		names:   make(map[string]string),
	}
}

// Add creates a log with the given display name.
func (r *Registry) Add(name string) (model.LogHandle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.LogHandle{}, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; ok {
		return model.LogHandle{}, ErrDuplicateName
	}
	h := model.LogHandle{ID: uuid.NewString(), Name: name}
	r.entries[h.ID] = &entry{handle: h}
	r.names[name] = h.ID
	r.order = append(r.order, h.ID)
	log.Printf("logregistry: added %q (%s)", name, h.ID)
	return h, nil
}

// Remove releases a log. Records that arrive for it afterwards are dropped.
func (r *Registry) Remove(h model.LogHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h.ID]
	if !ok {
		return
	}
	delete(r.entries, h.ID)
	delete(r.names, e.handle.Name)
	for i, id := range r.order {
		if id == h.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Printf("logregistry: removed %q", e.handle.Name)
}

// Bind attaches the consumer that receives the log's records.
func (r *Registry) Bind(h model.LogHandle, c Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h.ID]
	if !ok {
		return ErrUnknownLog
	}
	e.consumer = c
	return nil
}

// Accept delivers rec to the consumer bound to h.
func (r *Registry) Accept(h model.LogHandle, rec *model.LogRecord) {
	r.mu.Lock()
	e, ok := r.entries[h.ID]
	if !ok {
		r.dropped++
		r.mu.Unlock()
		metrics.RecordsDroppedTotal.Inc()
		return
	}
	e.records++
	c := e.consumer
	r.mu.Unlock()

	if c != nil {
		c.Consume(rec)
	}
}

// Logs returns the live handles in creation order.
func (r *Registry) Logs() []model.LogHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.LogHandle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].handle)
	}
	return out
}

// Records returns how many records were accepted for h.
func (r *Registry) Records(h model.LogHandle) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[h.ID]; ok {
		return e.records
	}
	return 0
}

// Dropped returns how many records arrived for unknown logs.
func (r *Registry) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}
