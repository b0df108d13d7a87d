// Package savedsession stores the wizard descriptions of a session so it can
// be provisioned again on the next start.
package savedsession

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/lookout/internal/provision"
)

// FileName is the saved-session file inside the save directory.
const FileName = "sessions.yml"

type document struct {
	Sessions []provision.WizardDescription `yaml:"sessions"`
}

// Load reads the descriptions in path. A missing file is an empty session.
func Load(path string) ([]provision.WizardDescription, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read saved sessions: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse saved sessions %s: %w", path, err)
	}
	return doc.Sessions, nil
}

// Save replaces the file at path with descs.
func Save(path string, descs []provision.WizardDescription) error {
	data, err := yaml.Marshal(document{Sessions: descs})
	if err != nil {
		return fmt.Errorf("encode saved sessions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create saved sessions dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write saved sessions: %w", err)
	}
	return os.Rename(tmp, path)
}

// Recorder appends every provisioned description to a saved-session file.
type Recorder struct {
	mu    sync.Mutex
	path  string
	descs []provision.WizardDescription
}

// NewRecorder starts from the descriptions already saved at path.
func NewRecorder(path string) (*Recorder, error) {
	descs, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Recorder{path: path, descs: descs}, nil
}

// Saved returns the recorded descriptions.
func (r *Recorder) Saved() []provision.WizardDescription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]provision.WizardDescription(nil), r.descs...)
}

// Record stores the description of p unless an identical name is already saved.
func (r *Recorder) Record(p *provision.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.descs {
		if d.Name == p.Description.Name {
			return nil
		}
	}
	r.descs = append(r.descs, p.Description)
	return Save(r.path, r.descs)
}
