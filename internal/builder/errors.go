package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("builder misuse")
	// ErrResolution is matched by every *ResolutionError.
	ErrResolution = errors.New("link resolution failed")

	// ErrUnknownIdentifier is wrapped when an endpoint names no live node.
	ErrUnknownIdentifier = errors.New("unknown identifier")
	// ErrUnknownPort is wrapped when a requested port does not exist.
	ErrUnknownPort = errors.New("unknown port")
	// ErrNoBoundaryPort is wrapped when a nested scope exposes no port in the
	// required direction.
	ErrNoBoundaryPort = errors.New("scope has no boundary port in that direction")
)

// ConfigurationError reports bad builder usage. It is returned before the
// document is touched.
type ConfigurationError struct {
	Scope  string
	ID     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("scope %q: %s", e.Scope, e.Reason)
	}
	return fmt.Sprintf("scope %q: node %q: %s", e.Scope, e.ID, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) work.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ResolutionError reports a link endpoint or node that could not be resolved
// to something concrete during Compile.
type ResolutionError struct {
	Scope    string
	Endpoint string
	Port     string
	Kind     string
	Err      error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("scope %q: cannot resolve %s", e.Scope, e.Endpoint)
	if e.Port != "" {
		msg += fmt.Sprintf(" port %s", e.Port)
	}
	if e.Kind != "" {
		msg += fmt.Sprintf(" (kind %q)", e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrResolution) work.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}
