package socketrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinytelemetry/lookout/internal/cmdline"
	"github.com/tinytelemetry/lookout/internal/provision"
)

const (
	// scannerInitBufSize is the initial buffer size for the per-connection scanner (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize is the maximum token size the scanner will accept (10 MB).
	scannerMaxTokenSize = 10 * 1024 * 1024
)

// Provisioner turns a description into a pipeline.
type Provisioner interface {
	Provision(desc provision.SourceDescription) (*provision.Pipeline, error)
}

// Sessions is the read side of the session registry.
type Sessions interface {
	Pipelines() []*provision.Pipeline
	Selected() (*provision.Pipeline, int)
}

// ErrAlreadyRunning is returned by Start when another process owns the socket.
var ErrAlreadyRunning = errors.New("socketrpc: another lookout is already listening")

// Server accepts sources from other lookout processes over a Unix domain
// socket using JSON-RPC 2.0.
type Server struct {
	socketPath  string
	provisioner Provisioner
	sessions    Sessions
	listener    net.Listener
	wg          sync.WaitGroup
	quit        chan struct{}
	stopOnce    sync.Once
}

// NewServer creates a new socket RPC server.
func NewServer(socketPath string, p Provisioner, sessions Sessions) *Server {
	return &Server{
		socketPath:  socketPath,
		provisioner: p,
		sessions:    sessions,
		quit:        make(chan struct{}),
	}
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("socketrpc: mkdir: %w", err)
	}

	// Remove stale socket if it exists.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			// Socket file exists but nobody is listening — stale.
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("%w on %s", ErrAlreadyRunning, s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("socketrpc: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("socketrpc: listening on %s", s.socketPath)
	return nil
}

// Stop closes the listener, waits for connections to drain, and removes the socket file.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener == nil {
			return
		}
		s.listener.Close()
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("socketrpc: accept error: %v", err)
				// Continue on transient errors (e.g., fd limit) instead of
				// killing the entire accept loop.
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		select {
		case <-s.quit:
			return
		default:
		}

		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp := Response{JSONRPC: "2.0", ID: 0, Error: &RPCError{Code: -32700, Message: "parse error"}}
			encoder.Encode(resp)
			continue
		}

		resp := s.dispatch(req)
		if err := encoder.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}

	marshalResult := func(v interface{}, err error) Response {
		if err != nil {
			resp.Error = &RPCError{Code: -32000, Message: err.Error()}
			return resp
		}
		data, merr := json.Marshal(v)
		if merr != nil {
			resp.Error = &RPCError{Code: -32603, Message: merr.Error()}
			return resp
		}
		resp.Result = data
		return resp
	}

	invalidParams := func(err error) Response {
		resp.Error = &RPCError{Code: -32602, Message: fmt.Sprintf("invalid params: %v", err)}
		return resp
	}

	switch req.Method {
	case "ProvisionCommandLine":
		var p CommandLineParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		desc, err := cmdline.Parse(p.Args)
		if err != nil {
			return marshalResult(nil, errors.New(provision.UserMessage(err)))
		}
		return marshalResult(s.provision(desc))

	case "Provision":
		var p ProvisionParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return invalidParams(err)
		}
		return marshalResult(s.provision(p.Description))

	case "ListSessions":
		return marshalResult(s.listSessions(), nil)

	default:
		resp.Error = &RPCError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}
}

func (s *Server) provision(desc provision.SourceDescription) (Result, error) {
	p, err := s.provisioner.Provision(desc)
	if p == nil {
		return Result{}, errors.New(provision.UserMessage(err))
	}
	res := Result{Name: p.Name(), Started: len(p.Providers), Requested: p.Requested}
	if err != nil {
		res.Error = provision.UserMessage(err)
	}
	return res, nil
}

func (s *Server) listSessions() []SessionInfo {
	_, selected := s.sessions.Selected()
	pipelines := s.sessions.Pipelines()
	out := make([]SessionInfo, 0, len(pipelines))
	for i, p := range pipelines {
		out = append(out, SessionInfo{
			Index:     i,
			ID:        p.Log.ID,
			Name:      p.Name(),
			Providers: len(p.Providers),
			Requested: p.Requested,
			Selected:  i == selected,
		})
	}
	return out
}
