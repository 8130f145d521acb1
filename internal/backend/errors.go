package backend

import (
	"errors"
	"fmt"
)

// ErrEmptyCredentials is returned before any request when user id or password is empty.
var ErrEmptyCredentials = errors.New("backend: empty credentials")

// NetworkError is a transport failure, a non-2xx status or an undecodable body.
// Callers surface it as a retryable notice.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend: %s: http %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("backend: %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err carries a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}
