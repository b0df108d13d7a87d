package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/lookout/internal/provision"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server lets a second lookout process add sources to the
// running session instead of starting its own.
//
//   Method                 Params                                     Result
//   ────────────────────   ────────────────────────────────────────   ─────────────
//   ProvisionCommandLine   {Args: []string}                           Result
//   Provision              {Description: provision.WizardDescription}  Result
//   ListSessions           (none)                                     []SessionInfo
//
// A rejected source (malformed arguments, unsupported combination,
// duplicate name) is an application error. A source whose providers only
// partly started is a Result with Error set.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (source rejected)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// Result describes a provisioned pipeline.
type Result struct {
	Name      string
	Started   int
	Requested int
	Error     string `json:",omitempty"`
}

// SessionInfo summarizes one pipeline of the running session.
type SessionInfo struct {
	Index     int
	ID        string
	Name      string
	Providers int
	Requested int
	Selected  bool
}

// ProvisionParams carries a wizard description.
type ProvisionParams struct {
	Description provision.WizardDescription
}

// CommandLineParams carries raw command-line arguments.
type CommandLineParams struct {
	Args []string
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/lookout/lookout.sock, falling back to
// ~/.local/state/lookout/lookout.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "lookout", "lookout.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/lookout.sock"
	}
	return filepath.Join(home, ".local", "state", "lookout", "lookout.sock")
}
