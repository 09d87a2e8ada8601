package session

import "errors"

// ErrAuthFailed is returned by TryAuthenticate when the server's
// AUTH_RESPONSE carries the sentinel request id -1.
var ErrAuthFailed = errors.New("session: authentication failed")

// ErrInvalidAuthResponse is returned when the packet following the
// (optional) spurious RESPONSE_VALUE during authentication is not an
// AUTH_RESPONSE.
var ErrInvalidAuthResponse = errors.New("session: invalid authentication response")

// ErrInvalidPacketID is returned when a command response's request id
// does not match the id of the outstanding request.
var ErrInvalidPacketID = errors.New("session: response for another request")

// ErrCommandEmpty is returned by Execute for an empty command string.
var ErrCommandEmpty = errors.New("session: command must not be empty")

// ErrNilStrategy is returned by Execute when the Session was configured
// with a nil Strategy via WithStrategy.
var ErrNilStrategy = errors.New("session: fragment strategy must not be nil")
