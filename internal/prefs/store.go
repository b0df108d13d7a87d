// Package prefs persists user preferences and drives the preferences window.
package prefs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the preferences file inside the save directory.
const FileName = "preferences.yml"

// Preferences is the persisted preference set.
type Preferences struct {
	Show bool `mapstructure:"show"`
}

// Store reads and writes the preferences file through viper.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open loads path, tolerating a missing file.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("show", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read preferences %s: %w", path, err)
		}
	}
	return &Store{v: v, path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Get returns the current preferences.
func (s *Store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get()
}

func (s *Store) get() Preferences {
	var p Preferences
	if err := s.v.Unmarshal(&p); err != nil {
		log.Printf("prefs: decode %s: %v", s.path, err)
	}
	return p
}

// Show reports whether the preferences window should be visible.
func (s *Store) Show() bool { return s.Get().Show }

// SetShow updates the show preference and writes the file.
func (s *Store) SetShow(show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set("show", show)
	return s.write()
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// Watch calls fn whenever the file changes on disk, including changes made
// by other processes. The file is created first if it does not exist.
func (s *Store) Watch(fn func(Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.write(); err != nil {
			return err
		}
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		s.mu.Lock()
		p := s.get()
		s.mu.Unlock()
		fn(p)
	})
	s.v.WatchConfig()
	return nil
}
