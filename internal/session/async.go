package session

import "sync"

// AsyncSubscription delivers registry events to a callback on its own
// goroutine, in append order. Append only queues the event, so a slow or
// stalled callback never holds the registry lock and the queue never fills.
type AsyncSubscription struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	busy   bool
	closed bool

	cancel   func()
	done     chan struct{}
	stopOnce sync.Once
}

// SubscribeAsync registers fn like Subscribe but runs it off the registry lock.
func (r *Registry) SubscribeAsync(fn func(Event)) *AsyncSubscription {
	s := &AsyncSubscription{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	s.cancel = r.Subscribe(s.enqueue)
	go s.run(fn)
	return s
}

func (s *AsyncSubscription) enqueue(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, ev)
	s.cond.Broadcast()
}

func (s *AsyncSubscription) run(fn func(Event)) {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		batch := s.queue
		s.queue = nil
		s.busy = true
		s.mu.Unlock()

		for _, ev := range batch {
			fn(ev)
		}

		s.mu.Lock()
		s.busy = false
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Flush waits until every event queued so far has been delivered.
func (s *AsyncSubscription) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 || s.busy {
		s.cond.Wait()
	}
}

// Stop unsubscribes, delivers the events already queued and waits for the
// goroutine to exit. It is safe to call more than once.
func (s *AsyncSubscription) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.closed = true
		s.cond.Broadcast()
		s.mu.Unlock()
		<-s.done
	})
}
