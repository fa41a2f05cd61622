// Package apierr holds the error taxonomy for calls to external AI
// services. The orchestrator maps these onto user-facing replies; no
// error of either kind is ever retried.
package apierr

import "fmt"

// ExternalServiceError reports a transport failure or a non-2xx reply
// from an external service. Status is zero when the request never got
// a response.
type ExternalServiceError struct {
	Service string
	Status  int
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// MalformedResponseError reports a reply that arrived but could not be
// decoded into the expected shape.
type MalformedResponseError struct {
	Service string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Service, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
