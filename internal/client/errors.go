package client

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Login when the server rejects
// the email/password pair. It is the only server rejection surfaced as
// a distinct user-facing error.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NetworkError wraps any transport or server failure other than a
// credential rejection. Background polling swallows these and retries;
// user-initiated actions surface them as a transient notice.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ValidationError is a client-side rejection of a request that never
// reaches the network: a required field is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
