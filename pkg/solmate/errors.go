package solmate

import (
	"errors"
	"fmt"
)

// Error kinds returned by the client. Use errors.Is to classify failures:
// ErrConnection covers unreachable or closed transports, ErrAuthentication
// covers rejected credentials and calls made without a valid session, and
// ErrProtocol covers malformed or unexpected replies.
var (
	ErrConnection     = errors.New("solmate: connection error")
	ErrAuthentication = errors.New("solmate: authentication error")
	ErrProtocol       = errors.New("solmate: protocol error")
)

// RequestError is an error reply sent by the backend for a request.
// It unwraps to ErrProtocol; the client translates login/authenticate
// rejections into ErrAuthentication before they reach the caller.
type RequestError struct {
	Route   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("solmate: request %q failed: %s", e.Route, e.Message)
}

func (e *RequestError) Unwrap() error { return ErrProtocol }
