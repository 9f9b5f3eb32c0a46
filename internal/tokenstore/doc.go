// Package tokenstore persists the session's refresh token across IDE
// restarts.
//
// The store holds exactly one token file per user, written with 0600
// permissions. The session core drives it with a strict discipline: persist
// on session start, clear *before* every refresh network call, rewrite on
// refresh success. A crash mid-refresh therefore never leaves an
// already-consumed refresh token on disk; the safe failure mode is forcing
// re-authorization.
//
// Watcher detects external removal of the token file (for example a second
// IDE instance logging out) so the owning session can log out too.
package tokenstore
