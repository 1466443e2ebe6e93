package annotate

import "fmt"

// UnsupportedModeError reports an annotation mode other than cli or rest.
type UnsupportedModeError struct {
	Mode string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("unsupported annotation mode %q (expected %q or %q)", e.Mode, ModeCLI, ModeREST)
}

// UnavailableError reports that a backend could not be reached or returned
// unusable data. Callers see this uniformly for timeouts, non-2xx statuses,
// malformed payloads, and failed tool invocations.
type UnavailableError struct {
	Backend Mode
	Reason  string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s annotation unavailable: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s annotation unavailable: %s", e.Backend, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// unavailable builds an UnavailableError for a backend.
func unavailable(backend Mode, reason string, err error) *UnavailableError {
	return &UnavailableError{Backend: backend, Reason: reason, Err: err}
}
