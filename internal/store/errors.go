package store

import "fmt"

// ExtractorError reports a rule or echo parameter set that could not be
// loaded or stored. The whole set is rejected.
type ExtractorError struct {
	Message string
	Err     error
}

func newError(err error, format string, args ...any) *ExtractorError {
	return &ExtractorError{Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *ExtractorError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExtractorError) Unwrap() error {
	return e.Err
}
