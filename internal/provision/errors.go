package provision

import (
	"errors"
	"fmt"
	"strings"
)

// Usage is the command-line syntax shown to the user.
const Usage = "<nlog|log4net> <udp|tcp> <portNumber>"

// MalformedCommandLineError reports arguments that do not match Usage.
type MalformedCommandLineError struct {
	Args   []string
	Reason string
}

func (e *MalformedCommandLineError) Error() string {
	if e.Reason == "" {
		return "malformed command line, expected " + Usage
	}
	return fmt.Sprintf("malformed command line (%s), expected %s", e.Reason, Usage)
}

// Usage returns the expected syntax for display.
func (e *MalformedCommandLineError) Usage() string { return Usage }

// UnsupportedCombinationError rejects a family/transport pair no provider serves.
type UnsupportedCombinationError struct {
	Family    LoggerFamily
	Transport Transport
}

func (e *UnsupportedCombinationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Family, strings.ToUpper(string(e.Transport)))
}

// LogCreationError wraps a log registry refusal.
type LogCreationError struct {
	Name string
	Err  error
}

func (e *LogCreationError) Error() string {
	return fmt.Sprintf("create log %q: %v", e.Name, e.Err)
}

func (e *LogCreationError) Unwrap() error { return e.Err }

// FrameCreationError wraps a frame factory or bind failure.
type FrameCreationError struct {
	Views []string
	Err   error
}

func (e *FrameCreationError) Error() string {
	return fmt.Sprintf("create frame %v: %v", e.Views, e.Err)
}

func (e *FrameCreationError) Unwrap() error { return e.Err }

// UnknownProviderTypeError is returned by provider registries for
// identifiers nobody registered.
type UnknownProviderTypeError struct {
	Type string
}

func (e *UnknownProviderTypeError) Error() string {
	return fmt.Sprintf("unknown provider type %q", e.Type)
}

// StartError reports one provider that could not be created, targeted or started.
type StartError struct {
	Type  string
	Index int
	Err   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("provider %d (%s): %v", e.Index+1, e.Type, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ProvisionError is the aggregate of a partially provisioned pipeline.
type ProvisionError struct {
	Name      string
	Started   int
	Requested int
	Failures  []error
}

func (e *ProvisionError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%q: %d of %d providers started: %s", e.Name, e.Started, e.Requested, strings.Join(msgs, "; "))
}

func (e *ProvisionError) Unwrap() []error { return e.Failures }

// UserMessage renders err as the corrective message shown to a person.
func UserMessage(err error) string {
	var malformed *MalformedCommandLineError
	if errors.As(err, &malformed) {
		return "Command line arguments should be " + Usage
	}
	var unsupported *UnsupportedCombinationError
	if errors.As(err, &unsupported) {
		family := string(unsupported.Family)
		if family != "" {
			family = strings.ToUpper(family[:1]) + family[1:]
		}
		return fmt.Sprintf("%s does not support %s", family, strings.ToUpper(string(unsupported.Transport)))
	}
	var partial *ProvisionError
	if errors.As(err, &partial) {
		return fmt.Sprintf("%d of %d providers started for %q", partial.Started, partial.Requested, partial.Name)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
