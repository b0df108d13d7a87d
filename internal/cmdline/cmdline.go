// Package cmdline turns process arguments into a command-line source
// description.
package cmdline

import (
	"fmt"
	"strconv"

	"github.com/tinytelemetry/lookout/internal/provision"
)

// Invocation is how the process was asked to start.
type Invocation int

const (
	Interactive Invocation = iota
	CommandLine
	Invalid
)

func (i Invocation) String() string {
	switch i {
	case Interactive:
		return "interactive"
	case CommandLine:
		return "command-line"
	}
	return "invalid"
}

// Mode classifies args: none starts the wizard, three describe a source.
func Mode(args []string) Invocation {
	switch len(args) {
	case 0:
		return Interactive
	case 3:
		return CommandLine
	}
	return Invalid
}

// Parse reads "<nlog|log4net> <udp|tcp> <portNumber>". Tokens are matched
// case-sensitively. Unsupported combinations parse; Provision rejects them.
func Parse(args []string) (provision.CommandLineDescription, error) {
	var d provision.CommandLineDescription
	if len(args) != 3 {
		return d, malformed(args, fmt.Sprintf("expected 3 arguments, got %d", len(args)))
	}

	family, ok := provision.ParseLoggerFamily(args[0])
	if !ok {
		return d, malformed(args, fmt.Sprintf("unknown logger family %q", args[0]))
	}
	transport, ok := provision.ParseTransport(args[1])
	if !ok {
		return d, malformed(args, fmt.Sprintf("unknown transport %q", args[1]))
	}
	port, err := strconv.ParseInt(args[2], 10, 32)
	if err != nil {
		return d, malformed(args, fmt.Sprintf("port %q is not a number", args[2]))
	}

	d.Family = family
	d.Transport = transport
	d.Port = int(port)
	return d, nil
}

func malformed(args []string, reason string) error {
	return &provision.MalformedCommandLineError{
		Args:   append([]string(nil), args...),
		Reason: reason,
	}
}
