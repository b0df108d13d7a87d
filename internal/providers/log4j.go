package providers

import (
	"fmt"
	"log"
	"sync"

	"github.com/tinytelemetry/lookout/internal/listener"
	"github.com/tinytelemetry/lookout/internal/log4j"
	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/provision"
)

// server is a listener that can be started.
type server interface {
	listener.Source
	Start() error
}

// log4jProvider receives log4j XML events from the NLog viewer target or the
// log4net UDP appender.
type log4jProvider struct {
	*lifecycle
	cfg      Config
	allowTCP bool

	src  server
	done chan struct{}
	once sync.Once
}

func newLog4jProvider(typ string, s provision.ProviderSettings, sink Sink, cfg Config, allowTCP bool) *log4jProvider {
	return &log4jProvider{
		lifecycle: newLifecycle(typ, s, sink),
		cfg:       cfg,
		allowTCP:  allowTCP,
	}
}

func (p *log4jProvider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.beginStart(); err != nil {
		return err
	}
	if !p.settings.UDP && !p.allowTCP {
		return fmt.Errorf("%s over tcp: %w", p.typ, ErrUnsupportedTransport)
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.host(p.settings), p.settings.Port)
	conf := listener.Config{
		ChannelSize:    p.cfg.ChannelSize,
		MaxPayloadSize: p.cfg.MaxPayloadSize,
		Name:           p.typ,
	}
	var src server
	if p.settings.UDP {
		src = listener.NewUDP(addr, conf)
	} else {
		conf.Split = log4j.SplitEvents
		src = listener.NewTCP(addr, conf)
	}
	if err := src.Start(); err != nil {
		return err
	}

	p.src = src
	p.done = make(chan struct{})
	p.state = provision.StateStarted
	go p.pump(p.target)
	log.Printf("providers: %s listening on %s %s", p.typ, p.settings.Transport(), src.Addr())
	return nil
}

func (p *log4jProvider) pump(target model.LogHandle) {
	defer close(p.done)
	errs := p.src.Errors()
	lines := p.src.Lines()
	for {
		select {
		case env, ok := <-lines:
			if !ok {
				return
			}
			recs, err := log4j.Decode(env.Line)
			if err != nil {
				p.decodeFailed(fmt.Errorf("from %s: %w", env.Remote, err))
			}
			p.deliver(target, recs)
		case err := <-errs:
			p.report(err)
		}
	}
}

func (p *log4jProvider) Stop() {
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

func (p *log4jProvider) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src != nil {
		return p.src.Addr()
	}
	return p.settings.Address()
}
