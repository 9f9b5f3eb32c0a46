// Package session implements the cloud session state machine at the heart of
// nimbus. A session is always in exactly one of three states:
//
//   - NotAuthorized: no identity. Authorize starts a browser OAuth flow.
//   - Authorizing: an OAuth attempt is in flight, possibly waiting for the
//     user to accept licenses. Cancellable.
//   - Authorized: the user has a durable identity. AcquireAccessToken hands
//     out short-lived access tokens, refreshing them through a single-flight
//     FIFO queue so concurrent callers never trigger parallel refreshes.
//
// State transitions go through StateManager.ChangeState, a compare-and-swap
// on the current state instance. A caller holding a stale state reference
// gets nil back and must re-read the current state; this is what makes
// "cancel racing completion" and "logout racing refresh failure" safe.
//
// The package depends on its collaborators through small interfaces
// (Authenticator, TokenPersistence, TokenWatcher) so tests can run the full
// machine against httptest servers without a browser or a real filesystem.
package session
