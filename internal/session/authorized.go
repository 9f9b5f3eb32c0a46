package session

import (
	"context"
	"sync"

	"nimbus/internal/api"
	"nimbus/internal/cloudapi"
	"nimbus/internal/telemetry"
	"nimbus/pkg/cloud"
	"nimbus/pkg/logging"
)

// tokenOutcome classifies how a token request was resolved.
type tokenOutcome int

const (
	outcomeSuccess tokenOutcome = iota
	outcomeOffline
	outcomeLoggedOut
)

// tokenResult is the single-assignment result of a token request. The
// processor goroutine is the only writer; the done channel is buffered so
// resolving never blocks on an abandoned caller.
type tokenResult struct {
	token   string
	outcome tokenOutcome
}

type tokenRequest struct {
	done chan tokenResult
}

func (r *tokenRequest) resolve(res tokenResult) {
	r.done <- res
}

// Authorized is the logged-in state. It owns the session credentials and a
// FIFO queue of token requests served by a single processor goroutine, so at
// most one refresh exchange is ever in flight no matter how many callers ask
// for a token concurrently.
type Authorized struct {
	manager  *Manager
	client   *cloudapi.Client
	userInfo cloud.UserInfo

	// creds seeds the processor goroutine, which owns credentials
	// exclusively from start on.
	creds cloud.Credentials

	mu     sync.Mutex
	queue  []*tokenRequest
	closed bool

	// pending signals the processor that the queue is non-empty.
	pending chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	watcher  TokenWatcher
}

func newAuthorized(manager *Manager, client *cloudapi.Client, info cloud.UserInfo, creds cloud.Credentials) *Authorized {
	ctx, cancel := context.WithCancel(context.Background())
	return &Authorized{
		manager:  manager,
		client:   client,
		userInfo: info,
		creds:    creds,
		pending:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Name implements UserState.
func (s *Authorized) Name() string {
	return "authorized"
}

// UserInfo returns the identity of the logged-in user. It is the zero value
// for sessions restored from a persisted token; use CloudClient to fetch the
// identity in that case.
func (s *Authorized) UserInfo() cloud.UserInfo {
	return s.userInfo
}

// FrontendURL returns the frontend this session is bound to.
func (s *Authorized) FrontendURL() string {
	return s.client.FrontendURL()
}

// start launches the token-request processor and the storage watcher. Called
// exactly once, by whoever installed this instance as the current state.
func (s *Authorized) start() {
	if s.manager.newWatcher != nil {
		if w := s.manager.newWatcher(); w != nil {
			if err := w.Start(func() { s.LogOut() }); err != nil {
				logging.Warn("Session", "Token storage watcher failed to start: %v", err)
			} else {
				s.watcher = w
			}
		}
	}
	go s.processTokenRequests()
}

// AcquireAccessToken returns a currently valid access token, refreshing the
// credentials through the single-flight queue when needed. It blocks until
// the token is available, the session dies, or ctx is done.
//
// Errors: ErrOffline when the cloud service is unreachable (the session
// stays Authorized; retry later), ErrLoggedOut when the session no longer
// exists, or ctx's error.
func (s *Authorized) AcquireAccessToken(ctx context.Context) (string, error) {
	req := &tokenRequest{done: make(chan tokenResult, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrLoggedOut
	}
	s.queue = append(s.queue, req)
	s.mu.Unlock()

	select {
	case s.pending <- struct{}{}:
	default:
	}

	select {
	case res := <-req.done:
		switch res.outcome {
		case outcomeSuccess:
			return res.token, nil
		case outcomeOffline:
			return "", ErrOffline
		default:
			return "", ErrLoggedOut
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// CloudClient returns a cloud API surface whose every request obtains its
// token through AcquireAccessToken. Host features hold this instead of raw
// tokens.
func (s *Authorized) CloudClient() *cloudapi.UserAPI {
	return s.client.UserAPI(sessionTokenSource{session: s})
}

// sessionTokenSource adapts AcquireAccessToken to cloudapi.TokenSource.
type sessionTokenSource struct {
	session *Authorized
}

func (t sessionTokenSource) AccessToken(ctx context.Context) (string, error) {
	return t.session.AcquireAccessToken(ctx)
}

// LogOut ends the session: the state returns to NotAuthorized, the queue is
// drained, and the persisted token is cleared. Safe to call from any
// goroutine, including the storage watcher. Returns nil when this instance
// was already superseded; a stale LogOut has no side effects at all, since
// the persisted token may belong to a successor session by then.
func (s *Authorized) LogOut() *NotAuthorized {
	next := &NotAuthorized{manager: s.manager, frontendURL: s.client.FrontendURL()}
	if s.manager.states.ChangeState(s, next) == nil {
		return nil
	}

	s.shutdown()
	if err := s.manager.tokens.Clear(); err != nil {
		logging.Warn("Session", "Failed to clear persisted token on logout: %v", err)
	}
	telemetry.SessionStateChanged(next.Name(), telemetry.ReasonLoggedOut)
	return next
}

// processTokenRequests is the single consumer of the token-request queue. It
// owns the credentials: no other goroutine reads or writes them after start.
func (s *Authorized) processTokenRequests() {
	creds := s.creds

	// Persist the starting refresh token so the session survives a restart.
	if refreshToken, ok := creds.RefreshToken(); ok {
		s.persistIfActive(refreshToken)
	}

	for {
		req, ok := s.nextRequest()
		if !ok {
			return
		}

		// Serve from the current credentials when the access token is still
		// valid; this is the hot path and involves no I/O.
		if token, ok := creds.AccessToken(); ok {
			req.resolve(tokenResult{token: token, outcome: outcomeSuccess})
			continue
		}

		refreshToken, ok := creds.RefreshToken()
		if !ok {
			req.resolve(tokenResult{outcome: outcomeLoggedOut})
			s.failRefresh()
			return
		}

		// The persisted token is about to be consumed. A crash between the
		// exchange and the rewrite must not leave a spent token on disk.
		if err := s.manager.tokens.Clear(); err != nil {
			logging.Warn("Session", "Failed to clear persisted token before refresh: %v", err)
		}

		newCreds, err := s.client.GetNewCredentialsFromRefreshCode(s.ctx, refreshToken)
		switch {
		case s.ctx.Err() != nil:
			req.resolve(tokenResult{outcome: outcomeLoggedOut})
			return

		case err == nil:
			creds = newCreds
			if newRefresh, ok := creds.RefreshToken(); ok {
				s.persistIfActive(newRefresh)
			}
			if token, ok := creds.AccessToken(); ok {
				req.resolve(tokenResult{token: token, outcome: outcomeSuccess})
			} else {
				// The exchange succeeded but returned no usable access
				// token; treat like a transient outage and keep the session.
				req.resolve(tokenResult{outcome: outcomeOffline})
			}

		case cloudapi.IsOffline(err):
			// The server never saw the refresh token, so it is still valid.
			logging.Warn("Session", "Token refresh failed, cloud unreachable: %v", err)
			creds = cloud.RefreshOnlyCredentials(refreshToken)
			s.persistIfActive(refreshToken)
			req.resolve(tokenResult{outcome: outcomeOffline})

		default:
			// The server rejected the refresh token; the identity is dead.
			logging.Error("Session", err, "Refresh token rejected, logging out")
			req.resolve(tokenResult{outcome: outcomeLoggedOut})
			s.failRefresh()
			return
		}
	}
}

// nextRequest dequeues the oldest pending request, blocking until one
// arrives. It returns false once the session is shut down.
func (s *Authorized) nextRequest() (*tokenRequest, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, false
		}
		if len(s.queue) > 0 {
			req := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return req, true
		}
		s.mu.Unlock()

		select {
		case <-s.pending:
		case <-s.ctx.Done():
			return nil, false
		}
	}
}

// persistIfActive saves the refresh token unless the session was already
// shut down. The save happens under the queue mutex so a concurrent logout
// cannot interleave its Clear between the check and the write.
func (s *Authorized) persistIfActive(refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.manager.tokens.Save(refreshToken); err != nil {
		logging.Warn("Session", "Failed to persist refresh token: %v", err)
	}
}

// failRefresh handles a fatal refresh outcome: drain the queue and force the
// transition to NotAuthorized. Called only by the processor goroutine.
// Draining this instance's own queue is always safe, but storage is cleared
// only when the transition succeeds: if a logout won the race, the store may
// already hold a successor's token.
func (s *Authorized) failRefresh() {
	s.shutdown()

	next := &NotAuthorized{manager: s.manager, frontendURL: s.client.FrontendURL()}
	if s.manager.states.ChangeState(s, next) == nil {
		return
	}

	if err := s.manager.tokens.Clear(); err != nil {
		logging.Warn("Session", "Failed to clear persisted token after rejection: %v", err)
	}
	telemetry.SessionStateChanged(next.Name(), telemetry.ReasonRefreshTokenRejected)
	api.GetNotificationHandler().Notify(api.NotificationError, "Logged out",
		"The cloud service rejected the session. Please log in again.")
}

// shutdown closes the queue exactly once and resolves every still-pending
// request as logged out. New AcquireAccessToken calls fail immediately
// afterwards; the closed flag and the enqueue check share a mutex, so no
// request can slip in and hang.
func (s *Authorized) shutdown() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		drained := s.queue
		s.queue = nil
		s.mu.Unlock()

		s.cancel()
		if s.watcher != nil {
			s.watcher.Stop()
		}
		for _, req := range drained {
			req.resolve(tokenResult{outcome: outcomeLoggedOut})
		}
	})
}
