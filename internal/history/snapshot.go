package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInMemory indicates the ledger has no file to snapshot.
var ErrInMemory = errors.New("history: in-memory ledger cannot be snapshotted")

// DBPath returns the database file. Empty means in-memory.
func (s *Store) DBPath() string { return s.path }

// SnapshotTo checkpoints the ledger and copies its file to dstPath.
// Inserts wait only for the checkpoint, not for the copy.
func (s *Store) SnapshotTo(dstPath string) error {
	if s.path == "" {
		return ErrInMemory
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	s.mu.Lock()
	_, err := s.db.Exec("CHECKPOINT")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	if err := copyFile(s.path, dstPath); err != nil {
		return fmt.Errorf("copy ledger: %w", err)
	}
	return nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dstPath)
}
