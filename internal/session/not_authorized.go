package session

import "nimbus/pkg/cloud"

// NotAuthorized is the initial and terminal state: no identity, no tokens.
// It remembers which frontend a previous session was bound to so that a
// re-login against a self-hosted installation does not need the URL again.
type NotAuthorized struct {
	manager *Manager

	// frontendURL is the frontend this state is bound to. Empty means the
	// manager default.
	frontendURL string
}

// Name implements UserState.
func (s *NotAuthorized) Name() string {
	return "not_authorized"
}

// targetFrontendURL resolves the frontend for the next authorization
// attempt: the explicit override wins, then the bound frontend, then the
// manager default.
func (s *NotAuthorized) targetFrontendURL(selfHostedFrontendURL string) string {
	if selfHostedFrontendURL != "" {
		return cloud.NormalizeFrontendURL(selfHostedFrontendURL)
	}
	if s.frontendURL != "" {
		return s.frontendURL
	}
	return s.manager.frontendURL
}

// Authorize starts a browser OAuth authorization attempt and transitions the
// session to Authorizing. selfHostedFrontendURL overrides the configured
// frontend for this attempt; pass the empty string for the default.
//
// Authorize returns nil when this NotAuthorized instance is no longer the
// current state; no flow is started in that case.
func (s *NotAuthorized) Authorize(selfHostedFrontendURL string) *Authorizing {
	next := newAuthorizing(s.manager, s.targetFrontendURL(selfHostedFrontendURL))
	if s.manager.states.ChangeState(s, next) == nil {
		return nil
	}
	go next.run()
	return next
}
