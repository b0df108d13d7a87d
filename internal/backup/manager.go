package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix = "history-"
	fileSuffix = ".duckdb"
)

// Manager takes periodic local snapshots of the history ledger.
type Manager struct {
	store Snapshotter
	cfg   Config
	now   func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager initializes the backup manager. It returns nil when backups are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: history-path is empty (in-memory ledger)")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: backup-dir is required when backup is enabled")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create backup-dir: %w", err)
	}

	m := &Manager{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		done:  make(chan struct{}),
	}

	// Startup snapshot to reduce recovery point after restarts.
	if _, err := m.RunOnce(); err != nil {
		log.Printf("backup: startup snapshot failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.RunOnce(); err != nil {
				log.Printf("backup: periodic snapshot failed: %v", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce creates one snapshot and prunes old copies. It returns the
// snapshot path.
func (m *Manager) RunOnce() (string, error) {
	fileName := filePrefix + m.now().UTC().Format("20060102-150405.000") + fileSuffix
	localPath := filepath.Join(m.cfg.LocalDir, fileName)

	if err := m.store.SnapshotTo(localPath); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	log.Printf("backup: created snapshot %s", localPath)

	if err := pruneLocalBackups(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return localPath, fmt.Errorf("prune local backups: %w", err)
	}
	return localPath, nil
}

// Stop terminates the periodic loop. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
	m.wg.Wait()
}

func pruneLocalBackups(localDir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	// The timestamp is embedded in the name, so lexical order is chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
