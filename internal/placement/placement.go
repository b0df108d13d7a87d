// Package placement saves and restores the main window's position and size.
package placement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// State is the window state stored alongside the rectangle.
type State string

const (
	Normal    State = "Normal"
	Minimized State = "Minimized"
	Maximized State = "Maximized"
)

// Placement is the persisted geometry of a window.
type Placement struct {
	Top         int   `json:"top"`
	Left        int   `json:"left"`
	Width       int   `json:"width"`
	Height      int   `json:"height"`
	WindowState State `json:"windowState"`
}

// Rect returns the placement rectangle.
func (p Placement) Rect() Rect {
	return Rect{Left: p.Left, Top: p.Top, Width: p.Width, Height: p.Height}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Left, Top, Width, Height int
}

// Intersects reports whether r and o touch or overlap. Shared edges and
// zero-size rectangles on the boundary count; a negative size never does.
func (r Rect) Intersects(o Rect) bool {
	if r.Width < 0 || r.Height < 0 || o.Width < 0 || o.Height < 0 {
		return false
	}
	return r.Left <= o.Left+o.Width && o.Left <= r.Left+r.Width &&
		r.Top <= o.Top+o.Height && o.Top <= r.Top+r.Height
}

// PathFor returns the placement file for a named window under saveDir.
func PathFor(saveDir, window string) string {
	return filepath.Join(saveDir, window+".json")
}

// Store reads and writes one placement file.
type Store struct {
	Path string
}

// Save writes p, creating the parent directory if needed.
func (s Store) Save(p Placement) error {
	if p.WindowState == "" {
		p.WindowState = Normal
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode placement: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create placement dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("write placement: %w", err)
	}
	return nil
}

// Load returns the saved placement, or nil when nothing usable is saved.
// A placement whose rectangle lies outside bounds is discarded so the
// window is never restored off-screen.
func (s Store) Load(bounds Rect) (*Placement, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read placement: %w", err)
	}

	var p Placement
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode placement %s: %w", s.Path, err)
	}
	if !p.Rect().Intersects(bounds) {
		log.Printf("placement: discarding %s, %+v is outside %+v", s.Path, p.Rect(), bounds)
		return nil, nil
	}
	switch p.WindowState {
	case Normal, Minimized, Maximized:
	default:
		p.WindowState = Normal
	}
	return &p, nil
}
