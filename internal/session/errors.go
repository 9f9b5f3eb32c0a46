package session

import "errors"

// ErrOffline is returned by AcquireAccessToken when the cloud service is
// unreachable. The session stays Authorized; the caller should retry later.
var ErrOffline = errors.New("cloud service unreachable, retry later")

// ErrLoggedOut is returned by AcquireAccessToken when the session no longer
// exists: the refresh token was rejected or the user logged out. Callers
// must treat this as terminal for their current unit of work and cancel
// whatever context that work runs under.
var ErrLoggedOut = errors.New("session logged out")
