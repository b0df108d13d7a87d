package provision

import (
	"errors"
	"testing"
)

func TestParseLoggerFamily(t *testing.T) {
	tests := []struct {
		in   string
		want LoggerFamily
		ok   bool
	}{
		{"nlog", FamilyNLog, true},
		{"log4net", FamilyLog4Net, true},
		{"NLog", "", false},
		{"log4j", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLoggerFamily(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLoggerFamily(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseTransport(t *testing.T) {
	for _, in := range []string{"udp", "tcp"} {
		if _, ok := ParseTransport(in); !ok {
			t.Errorf("ParseTransport(%q) rejected", in)
		}
	}
	for _, in := range []string{"UDP", "Tcp", "http", ""} {
		if _, ok := ParseTransport(in); ok {
			t.Errorf("ParseTransport(%q) accepted", in)
		}
	}
}

func TestCommandLineWizard(t *testing.T) {
	w := CommandLineDescription{Family: FamilyNLog, Transport: TransportTCP, Port: 0}.Wizard()
	if w.Name != "nlog listening on tcp port 0" {
		t.Errorf("name = %q", w.Name)
	}
	if len(w.Providers) != 1 || w.Providers[0].Settings.UDP || w.Providers[0].Settings.Port != 0 {
		t.Errorf("providers = %+v", w.Providers)
	}
}

func TestValidateLargePortAccepted(t *testing.T) {
	d := CommandLineDescription{Family: FamilyNLog, Transport: TransportUDP, Port: 70000}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateLog4NetTCPAnyPort(t *testing.T) {
	for _, port := range []int{0, 65535, 70000} {
		d := CommandLineDescription{Family: FamilyLog4Net, Transport: TransportTCP, Port: port}
		var unsupported *UnsupportedCombinationError
		if err := d.Validate(); !errors.As(err, &unsupported) {
			t.Errorf("port %d: err = %v, want UnsupportedCombinationError", port, err)
		}
	}
}

// A negative port is malformed before the combination is considered.
func TestValidateLog4NetTCPNegativePort(t *testing.T) {
	d := CommandLineDescription{Family: FamilyLog4Net, Transport: TransportTCP, Port: -1}
	var malformed *MalformedCommandLineError
	if err := d.Validate(); !errors.As(err, &malformed) {
		t.Errorf("err = %v, want MalformedCommandLineError", err)
	}
}

func TestDisplayNameNLogTCP(t *testing.T) {
	d := CommandLineDescription{Family: FamilyNLog, Transport: TransportTCP, Port: 514}
	if got, want := d.DisplayName(), "nlog listening on tcp port 514"; got != want {
		t.Errorf("DisplayName = %q, want %q", got, want)
	}
	if got := d.Wizard().Name; got != "nlog listening on tcp port 514" {
		t.Errorf("wizard name = %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(&MalformedCommandLineError{}); got != "Command line arguments should be <nlog|log4net> <udp|tcp> <portNumber>" {
		t.Errorf("malformed = %q", got)
	}
	partial := &ProvisionError{Name: "App", Started: 2, Requested: 3, Failures: []error{errors.New("x")}}
	if got := UserMessage(partial); got != `2 of 3 providers started for "App"` {
		t.Errorf("partial = %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("nil = %q", got)
	}
}
