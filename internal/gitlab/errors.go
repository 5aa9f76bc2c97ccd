package gitlab

import "fmt"

// APIError reports a non-2xx response from the GitLab API. The crawl for
// the failing resource stops; callers decide whether that is fatal.
type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab: %s returned status %d", e.Path, e.Status)
}

// TransportError reports that no usable HTTP response was received.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gitlab: request to %s failed: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that did not match the expected
// shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("gitlab: decoding response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
