package backup

import "time"

// Config controls periodic snapshots of the provisioning history.
type Config struct {
	Enabled  bool
	Interval time.Duration
	LocalDir string
	KeepLast int
}

// Snapshotter is the snapshot contract the manager needs from a ledger.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}
