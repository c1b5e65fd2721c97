package rest

import (
	"errors"
	"fmt"
)

// ErrStatus is wrapped by Error when a request with HTTPErrors set got a non-success
// status code.
var ErrStatus = errors.New("unsuccessful status code")

// Error is returned for every failed request. Err holds the underlying cause: an
// encoding failure, a network failure, an open circuit or ErrStatus.
type Error struct {
	Method string
	URL    string
	Status int
	Err    error
}

var _ error = &Error{}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s [%d]: %s", e.Method, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
