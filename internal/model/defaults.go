package model

import "time"

// Shared defaults used by the shell and the control surfaces.
const (
	DefaultUpdateInterval = 500 * time.Millisecond
	DefaultViewBuffer     = 1000
	DefaultListenHost     = "0.0.0.0"
)
