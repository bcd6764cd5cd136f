// Package api provides the client for the DFS gateway HTTP API.
package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse indicates a gateway payload that could not be parsed
// into the expected shape. Callers treat it like a remote failure: the
// operation can be retried, nothing local is corrupted.
var ErrMalformedResponse = errors.New("malformed gateway response")

// RemoteError is a non-success HTTP status from the gateway, surfaced to
// callers unmodified. Retrying is the caller's decision.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
}

// IsRemoteError reports whether err is a gateway status failure, and if so
// returns it.
func IsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsNotFound reports whether err is a gateway 404.
func IsNotFound(err error) bool {
	re, ok := IsRemoteError(err)
	return ok && re.StatusCode == 404
}

// IsAuthError reports whether err indicates a missing or rejected session.
func IsAuthError(err error) bool {
	if re, ok := IsRemoteError(err); ok {
		return re.StatusCode == 401 || re.StatusCode == 403
	}
	return false
}

// IsNetworkError reports whether err looks like a transport failure rather
// than a gateway response. Message matching is deliberate: transport errors
// come from several packages without a shared type.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := IsRemoteError(err); ok {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"i/o timeout",
		"broken pipe",
		"eof",
		"timeout",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
