// Package session keeps the ordered set of live pipelines and tells
// observers about every pipeline that joins it.
package session

import (
	"log"
	"sync"

	"github.com/tinytelemetry/lookout/internal/metrics"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// Action is the kind of registry change.
type Action int

const (
	Added Action = iota
)

func (a Action) String() string {
	if a == Added {
		return "added"
	}
	return "unknown"
}

// Event describes one registry change.
type Event struct {
	Action   Action
	Index    int
	Pipeline *provision.Pipeline
}

// Registry holds pipelines in append order. The last appended pipeline is
// the selected one.
type Registry struct {
	mu        sync.Mutex
	pipelines []*provision.Pipeline
	selected  int
	subs      map[int]func(Event)
	nextSub   int
}

func New() *Registry {
	return &Registry{selected: -1, subs: make(map[int]func(Event))}
}

// Append adds p, selects it and notifies subscribers before returning.
// Subscribers run with the registry locked and must not call back into it;
// use SubscribeAsync for subscribers that block or do I/O.
func (r *Registry) Append(p *provision.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pipelines = append(r.pipelines, p)
	r.selected = len(r.pipelines) - 1
	metrics.SessionsActive.Set(float64(len(r.pipelines)))
	log.Printf("session: added %q as #%d", p.Name(), r.selected+1)

	ev := Event{Action: Added, Index: r.selected, Pipeline: p}
	for id := 0; id < r.nextSub; id++ {
		if fn, ok := r.subs[id]; ok {
			fn(ev)
		}
	}
}

// Subscribe registers fn for every later change. The returned func removes it.
func (r *Registry) Subscribe(fn func(Event)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pipelines)
}

// Pipelines returns a copy of the registry contents in append order.
func (r *Registry) Pipelines() []*provision.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*provision.Pipeline(nil), r.pipelines...)
}

// Selected returns the selected pipeline and its index, or nil and -1.
func (r *Registry) Selected() (*provision.Pipeline, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected < 0 {
		return nil, -1
	}
	return r.pipelines[r.selected], r.selected
}

// Select moves the selection to index i.
func (r *Registry) Select(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.pipelines) {
		return false
	}
	r.selected = i
	return true
}

// Close stops every provider of every pipeline.
func (r *Registry) Close() {
	for _, p := range r.Pipelines() {
		p.Stop()
	}
}
