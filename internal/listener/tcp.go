package listener

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"sync"

	"github.com/tinytelemetry/lookout/internal/model"
)

// TCPServer accepts TCP connections and frames each stream into payloads.
type TCPServer struct {
	listener       net.Listener
	addr           string
	name           string
	lineChan       chan model.IngestEnvelope
	errs           chan error
	maxPayloadSize int
	split          bufio.SplitFunc
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	stopOnce       sync.Once
}

// NewTCP creates a new TCP listener. Default addr is "127.0.0.1:4000".
func NewTCP(addr string, conf ...Config) *TCPServer {
	if addr == "" {
		addr = "127.0.0.1:4000"
	}
	c := resolveConfig("tcp", conf)
	split := bufio.SplitFunc(bufio.ScanLines)
	if c.Split != nil {
		split = c.Split
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		addr:           addr,
		name:           c.Name,
		lineChan:       make(chan model.IngestEnvelope, c.ChannelSize),
		errs:           make(chan error, 1),
		maxPayloadSize: c.MaxPayloadSize,
		split:          split,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start binds the socket and begins accepting connections.
// A bind failure is returned; later failures go to Errors.
func (s *TCPServer) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					reportErr(s.errs, err)
					return
				}
				log.Printf("listener: tcp accept error on %s: %v", s.addr, err)
				continue
			}
			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}()

	return nil
}

func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, s.maxPayloadSize)
	scanner.Split(s.split)

	remote := conn.RemoteAddr().String()
	for scanner.Scan() {
		payload := scanner.Text()
		if payload == "" {
			continue
		}
		select {
		case s.lineChan <- model.IngestEnvelope{Source: s.name, Remote: remote, Line: payload}:
		case <-s.ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-s.ctx.Done():
			return
		default:
		}
		if errors.Is(err, bufio.ErrTooLong) {
			log.Printf("listener: dropped connection %s due to payload exceeding max size (%d bytes)", remote, s.maxPayloadSize)
			return
		}
		log.Printf("listener: scanner error from %s: %v", remote, err)
	}
}

// Stop gracefully shuts down the listener and closes Lines.
func (s *TCPServer) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		close(s.lineChan)
	})
	return nil
}

// Lines returns the channel of received payloads.
func (s *TCPServer) Lines() <-chan model.IngestEnvelope {
	return s.lineChan
}

// Errors returns asynchronous listener failures.
func (s *TCPServer) Errors() <-chan error {
	return s.errs
}

// Name returns the envelope source tag.
func (s *TCPServer) Name() string { return s.name }

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *TCPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
