package brain

import "fmt"

// ConfigurationError is fatal at startup: a context could not be constructed.
type ConfigurationError struct {
	Component string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Component, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NotReadyError is returned by context accessors before the manager is ready.
// It carries the original construction failure.
type NotReadyError struct {
	Cause error
}

func (e *NotReadyError) Error() string {
	if e.Cause == nil {
		return "brain contexts not ready"
	}
	return fmt.Sprintf("brain contexts not ready: %v", e.Cause)
}

func (e *NotReadyError) Unwrap() error { return e.Cause }
