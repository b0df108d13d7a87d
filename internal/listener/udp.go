package listener

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/tinytelemetry/lookout/internal/model"
)

// UDPServer receives datagrams; every datagram becomes one payload.
type UDPServer struct {
	conn     *net.UDPConn
	addr     string
	name     string
	lineChan chan model.IngestEnvelope
	errs     chan error
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewUDP creates a new UDP listener. Default addr is "127.0.0.1:4000".
func NewUDP(addr string, conf ...Config) *UDPServer {
	if addr == "" {
		addr = "127.0.0.1:4000"
	}
	c := resolveConfig("udp", conf)
	ctx, cancel := context.WithCancel(context.Background())
	return &UDPServer{
		addr:     addr,
		name:     c.Name,
		lineChan: make(chan model.IngestEnvelope, c.ChannelSize),
		errs:     make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the socket and begins reading datagrams.
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve udp address %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn

	s.wg.Add(1)
	go s.read()
	return nil
}

func (s *UDPServer) read() {
	defer s.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.ctx.Done():
			default:
				reportErr(s.errs, fmt.Errorf("udp read on %s: %w", s.addr, err))
			}
			return
		}

		payload := strings.TrimRight(string(buf[:n]), "\r\n\x00")
		if payload == "" {
			continue
		}
		env := model.IngestEnvelope{Source: s.name, Line: payload}
		if remote != nil {
			env.Remote = remote.String()
		}
		select {
		case s.lineChan <- env:
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop closes the socket, waits for the reader and closes Lines.
func (s *UDPServer) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.conn != nil {
			s.conn.Close()
		}
		s.wg.Wait()
		close(s.lineChan)
	})
	return nil
}

func (s *UDPServer) Lines() <-chan model.IngestEnvelope { return s.lineChan }
func (s *UDPServer) Errors() <-chan error               { return s.errs }
func (s *UDPServer) Name() string                       { return s.name }

// Addr returns the bound address, or the configured one before Start.
func (s *UDPServer) Addr() string {
	if s.conn != nil {
		return s.conn.LocalAddr().String()
	}
	return s.addr
}
