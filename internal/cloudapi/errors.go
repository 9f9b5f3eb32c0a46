package cloudapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrOffline indicates the cloud service could not be reached at the
// transport level. Offline errors are always recoverable: the caller may
// retry and must never treat them as an authentication failure.
var ErrOffline = errors.New("cloud service unreachable")

// ResponseError indicates the cloud service explicitly rejected a request.
type ResponseError struct {
	// StatusCode is the HTTP status returned by the server.
	StatusCode int

	// Body is the (truncated) response body for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("cloud service returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("cloud service returned status %d", e.StatusCode)
}

// IsAuthError reports whether the response status indicates rejected
// credentials, for callers that distinguish auth rejections from other
// server errors. The session's refresh path treats any non-offline refresh
// failure as fatal and does not branch on this.
func (e *ResponseError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsOffline reports whether err represents an unreachable cloud service.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOffline) {
		return true
	}
	// Transport-level failures from net/http arrive as *url.Error.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// AsResponseError extracts a *ResponseError from err, if present.
func AsResponseError(err error) (*ResponseError, bool) {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr, true
	}
	return nil, false
}
