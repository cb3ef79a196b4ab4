package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrExternalService marks a failed or non-successful text-generation call.
	ErrExternalService = errors.New("text generation service error")

	// ErrCircuitOpen is returned without calling upstream while the breaker is open.
	ErrCircuitOpen = errors.New("text generation circuit open")
)

// ExternalServiceError carries the upstream status and body of a failed call.
// Status is 0 when no HTTP response was received.
type ExternalServiceError struct {
	Status int
	Body   string
	Err    error
}

func (e *ExternalServiceError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", ErrExternalService, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %s", ErrExternalService, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrExternalService, e.Err)
	}
	return ErrExternalService.Error()
}

func (e *ExternalServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalService}
	}
	return []error{ErrExternalService, e.Err}
}

// countsAsFailure reports whether err should count against the breaker.
// Client-side 4xx responses other than 429 indicate a bad request, not an
// unhealthy upstream. Caller cancellation does not count either.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *ExternalServiceError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 && se.Status != 429 {
		return false
	}
	return true
}
