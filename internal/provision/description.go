package provision

import (
	"fmt"
	"strconv"
)

// Kind tells which entry point produced a source description.
type Kind string

const (
	KindWizard      Kind = "wizard"
	KindCommandLine Kind = "cmdline"
)

// Provider type identifiers used by the command-line path.
const (
	ProviderNLogViewer = "NLogViewerProvider"
	ProviderLog4Net    = "Log4NetProvider"
)

// DefaultView is the informational message view every command-line
// session gets.
const DefaultView = "messages"

// SourceDescription is either a WizardDescription or a CommandLineDescription.
type SourceDescription interface {
	Kind() Kind
}

// ProviderSettings are the network settings every provider takes.
type ProviderSettings struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port" yaml:"port"`
	UDP  bool   `json:"udp" yaml:"udp"`
}

// Transport returns the transport name the settings select.
func (s ProviderSettings) Transport() Transport {
	if s.UDP {
		return TransportUDP
	}
	return TransportTCP
}

// Address joins host and port; an empty host listens on all interfaces.
func (s ProviderSettings) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// ProviderSpec is one provider request inside a wizard description.
type ProviderSpec struct {
	Type     string           `json:"type" yaml:"type"`
	Settings ProviderSettings `json:"settings" yaml:"settings"`
}

// WizardDescription is the fully interactive source description: one named
// log, an ordered list of views and an ordered list of providers.
type WizardDescription struct {
	Name      string         `json:"name" yaml:"name"`
	Views     []string       `json:"views" yaml:"views"`
	Providers []ProviderSpec `json:"providers" yaml:"providers"`
}

func (WizardDescription) Kind() Kind { return KindWizard }

// LoggerFamily is the logging framework on the sending side.
type LoggerFamily string

const (
	FamilyNLog    LoggerFamily = "nlog"
	FamilyLog4Net LoggerFamily = "log4net"
)

// ParseLoggerFamily matches s exactly; matching is case-sensitive.
func ParseLoggerFamily(s string) (LoggerFamily, bool) {
	switch LoggerFamily(s) {
	case FamilyNLog, FamilyLog4Net:
		return LoggerFamily(s), true
	}
	return "", false
}

// ProviderType maps a family to the provider that speaks its protocol.
func (f LoggerFamily) ProviderType() string {
	if f == FamilyNLog {
		return ProviderNLogViewer
	}
	return ProviderLog4Net
}

// Transport is the network transport of a command-line source.
type Transport string

const (
	TransportUDP Transport = "udp"
	TransportTCP Transport = "tcp"
)

// ParseTransport matches s exactly; matching is case-sensitive.
func ParseTransport(s string) (Transport, bool) {
	switch Transport(s) {
	case TransportUDP, TransportTCP:
		return Transport(s), true
	}
	return "", false
}

// CommandLineDescription is the minimal (family, transport, port) tuple.
type CommandLineDescription struct {
	Family    LoggerFamily `json:"family"`
	Transport Transport    `json:"transport"`
	Port      int          `json:"port"`
}

func (CommandLineDescription) Kind() Kind { return KindCommandLine }

// Validate checks the tuple syntactically, then rejects combinations no
// provider can serve.
func (d CommandLineDescription) Validate() error {
	if _, ok := ParseLoggerFamily(string(d.Family)); !ok {
		return &MalformedCommandLineError{Reason: fmt.Sprintf("unknown logger family %q", d.Family)}
	}
	if _, ok := ParseTransport(string(d.Transport)); !ok {
		return &MalformedCommandLineError{Reason: fmt.Sprintf("unknown transport %q", d.Transport)}
	}
	if d.Port < 0 {
		return &MalformedCommandLineError{Reason: fmt.Sprintf("negative port %d", d.Port)}
	}
	if d.Family == FamilyLog4Net && d.Transport == TransportTCP {
		return &UnsupportedCombinationError{Family: d.Family, Transport: d.Transport}
	}
	return nil
}

// DisplayName is the synthesized log name, e.g. "nlog listening on udp port 9000".
func (d CommandLineDescription) DisplayName() string {
	return fmt.Sprintf("%s listening on %s port %d", d.Family, d.Transport, d.Port)
}

// Wizard returns the equivalent single-provider wizard description.
// It does not validate; call Validate first.
func (d CommandLineDescription) Wizard() WizardDescription {
	return WizardDescription{
		Name:  d.DisplayName(),
		Views: []string{DefaultView},
		Providers: []ProviderSpec{{
			Type: d.Family.ProviderType(),
			Settings: ProviderSettings{
				UDP:  d.Transport == TransportUDP,
				Port: d.Port,
			},
		}},
	}
}
