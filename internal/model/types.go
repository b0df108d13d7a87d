package model

import "time"

// LogRecord represents a single log entry received by a provider.
// It is the canonical type handed from providers to frames.
type LogRecord struct {
	Timestamp  time.Time
	Level      string // TRACE/DEBUG/INFO/WARN/ERROR/FATAL
	Message    string
	Logger     string
	Thread     string
	Hostname   string
	Service    string
	Exception  string
	Attributes map[string]string
	Source     string // provider type that decoded the record
}

// LogHandle identifies one log in the log registry.
// Pipelines reference handles; only the registry creates them.
type LogHandle struct {
	ID   string
	Name string
}

// IsZero reports whether h was never issued by a registry.
func (h LogHandle) IsZero() bool {
	return h.ID == ""
}

func (h LogHandle) String() string {
	return h.Name
}
