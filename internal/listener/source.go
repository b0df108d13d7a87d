package listener

import "github.com/tinytelemetry/lookout/internal/model"

const (
	// DefaultChannelSize is the default buffer size for received payloads.
	DefaultChannelSize = 100_000

	// DefaultMaxPayloadSize is the default maximum size (in bytes) of one payload.
	DefaultMaxPayloadSize = 1024 * 1024 // 1MB

	maxDatagramSize = 65536
)

// Source is the shared shape of every network listener in this package.
type Source interface {
	Lines() <-chan model.IngestEnvelope // read-only channel of payloads
	Errors() <-chan error               // asynchronous listener failures
	Stop() error                        // graceful shutdown, safe to call twice
	Name() string                       // "tcp", "udp"
	Addr() string
}

// Config holds tunable parameters shared by the TCP and UDP listeners.
type Config struct {
	ChannelSize    int
	MaxPayloadSize int
	// Split frames a TCP stream into payloads. Defaults to bufio.ScanLines.
	// Ignored by the UDP listener, where each datagram is one payload.
	Split func(data []byte, atEOF bool) (advance int, token []byte, err error)
	// Name overrides the envelope source tag.
	Name string
}

func resolveConfig(defaultName string, conf []Config) Config {
	c := Config{
		ChannelSize:    DefaultChannelSize,
		MaxPayloadSize: DefaultMaxPayloadSize,
		Name:           defaultName,
	}
	if len(conf) == 0 {
		return c
	}
	if conf[0].ChannelSize > 0 {
		c.ChannelSize = conf[0].ChannelSize
	}
	if conf[0].MaxPayloadSize > 0 {
		c.MaxPayloadSize = conf[0].MaxPayloadSize
	}
	if conf[0].Split != nil {
		c.Split = conf[0].Split
	}
	if conf[0].Name != "" {
		c.Name = conf[0].Name
	}
	return c
}

func reportErr(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}
