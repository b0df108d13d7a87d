package prefs

import "sync"

// WindowState is the visibility of the preferences window.
type WindowState int

const (
	WindowClosed WindowState = iota
	WindowOpen
)

func (s WindowState) String() string {
	if s == WindowOpen {
		return "open"
	}
	return "closed"
}

// Transition is what the presentation layer must do after an observation.
type Transition int

const (
	None Transition = iota
	Opened
	Closed
)

func (t Transition) String() string {
	switch t {
	case Opened:
		return "opened"
	case Closed:
		return "closed"
	}
	return "none"
}

// Window tracks whether the preferences window is shown. It starts closed
// and moves only when the observed preference differs from its state, so
// repeated notifications never open a second window.
type Window struct {
	mu    sync.Mutex
	state WindowState
}

func (w *Window) State() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Observe applies the current show preference.
func (w *Window) Observe(show bool) Transition {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case show && w.state == WindowClosed:
		w.state = WindowOpen
		return Opened
	case !show && w.state == WindowOpen:
		w.state = WindowClosed
		return Closed
	}
	return None
}
