package providers

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"

	"github.com/tinytelemetry/lookout/internal/listener"
	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/otlplog"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// otlpProvider serves the OTLP/gRPC LogsService.
type otlpProvider struct {
	*lifecycle
	cfg Config

	lis    net.Listener
	server *grpc.Server
	done   chan struct{}
	once   sync.Once
}

func newOTLPProvider(s provision.ProviderSettings, sink Sink, cfg Config) *otlpProvider {
	return &otlpProvider{lifecycle: newLifecycle(TypeOTLP, s, sink), cfg: cfg}
}

func (p *otlpProvider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.beginStart(); err != nil {
		return err
	}
	if p.settings.UDP {
		return fmt.Errorf("%s over udp: %w", p.typ, ErrUnsupportedTransport)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", p.cfg.host(p.settings), p.settings.Port))
	if err != nil {
		return err
	}

	opts := []grpc.ServerOption{}
	if p.cfg.MaxPayloadSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(p.cfg.MaxPayloadSize))
	}
	p.lis = lis
	p.server = grpc.NewServer(opts...)
	collogspb.RegisterLogsServiceServer(p.server, &logsService{p: p, target: p.target})
	p.done = make(chan struct{})
	p.state = provision.StateStarted

	go func() {
		defer close(p.done)
		if err := p.server.Serve(lis); err != nil {
			p.report(err)
		}
	}()
	log.Printf("providers: %s listening on tcp %s", p.typ, lis.Addr())
	return nil
}

func (p *otlpProvider) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		server, done := p.server, p.done
		p.state = provision.StateStopped
		p.mu.Unlock()

		if server == nil {
			return
		}
		server.Stop()
		<-done
	})
}

func (p *otlpProvider) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lis != nil {
		return p.lis.Addr().String()
	}
	return p.settings.Address()
}

type logsService struct {
	collogspb.UnimplementedLogsServiceServer
	p      *otlpProvider
	target model.LogHandle
}

func (s *logsService) Export(_ context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	s.p.deliver(s.target, otlplog.FromRequest(req))
	return &collogspb.ExportLogsServiceResponse{}, nil
}

// otelJSONProvider reads newline-delimited OTLP/JSON export requests over TCP.
type otelJSONProvider struct {
	*lifecycle
	cfg Config

	src  server
	done chan struct{}
	once sync.Once
}

func newOTelJSONProvider(s provision.ProviderSettings, sink Sink, cfg Config) *otelJSONProvider {
	return &otelJSONProvider{lifecycle: newLifecycle(TypeOTelJSON, s, sink), cfg: cfg}
}

func (p *otelJSONProvider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.beginStart(); err != nil {
		return err
	}
	if p.settings.UDP {
		return fmt.Errorf("%s over udp: %w", p.typ, ErrUnsupportedTransport)
	}

	src := listener.NewTCP(fmt.Sprintf("%s:%d", p.cfg.host(p.settings), p.settings.Port), listener.Config{
		ChannelSize:    p.cfg.ChannelSize,
		MaxPayloadSize: p.cfg.MaxPayloadSize,
		Name:           p.typ,
	})
	if err := src.Start(); err != nil {
		return err
	}

	p.src = src
	p.done = make(chan struct{})
	p.state = provision.StateStarted
	go p.pump(p.target)
	log.Printf("providers: %s listening on tcp %s", p.typ, src.Addr())
	return nil
}

func (p *otelJSONProvider) pump(target model.LogHandle) {
	defer close(p.done)
	errs := p.src.Errors()
	lines := p.src.Lines()
	for {
		select {
		case env, ok := <-lines:
			if !ok {
				return
			}
			recs, err := otlplog.DecodeJSON(env.Line)
			if err != nil {
				p.decodeFailed(fmt.Errorf("from %s: %w", env.Remote, err))
				continue
			}
			p.deliver(target, recs)
		case err := <-errs:
			p.report(err)
		}
	}
}

func (p *otelJSONProvider) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		src, done := p.src, p.done
		p.state = provision.StateStopped
		p.mu.Unlock()

		if src == nil {
			return
		}
		if err := src.Stop(); err != nil {
			log.Printf("providers: %s stop: %v", p.typ, err)
		}
		<-done
	})
}

func (p *otelJSONProvider) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src != nil {
		return p.src.Addr()
	}
	return p.settings.Address()
}
