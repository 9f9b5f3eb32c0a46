package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"nimbus/internal/api"
	"nimbus/internal/browserauth"
	"nimbus/internal/cloudapi"
	"nimbus/internal/telemetry"
	"nimbus/pkg/cloud"
	"nimbus/pkg/logging"
)

// licenseDecision is an externally reported license-acceptance outcome.
type licenseDecision struct {
	userID   string
	accepted bool
}

// Authorizing is the in-flight state: exactly one OAuth attempt runs in a
// background goroutine, possibly followed by a wait for license acceptance.
// The attempt ends in exactly one terminal transition, to Authorized on
// success or back to NotAuthorized on failure, cancellation, or timeout.
type Authorizing struct {
	manager     *Manager
	frontendURL string

	ctx      context.Context
	cancelFn context.CancelFunc

	// checkCh triggers an immediate license re-check; acceptedCh carries
	// externally reported acceptance outcomes. Both are buffered so the
	// public methods never block.
	checkCh    chan struct{}
	acceptedCh chan licenseDecision
}

func newAuthorizing(manager *Manager, frontendURL string) *Authorizing {
	ctx, cancel := context.WithCancel(context.Background())
	return &Authorizing{
		manager:     manager,
		frontendURL: frontendURL,
		ctx:         ctx,
		cancelFn:    cancel,
		checkCh:     make(chan struct{}, 1),
		acceptedCh:  make(chan licenseDecision, 8),
	}
}

// Name implements UserState.
func (a *Authorizing) Name() string {
	return "authorizing"
}

// FrontendURL returns the frontend this attempt runs against.
func (a *Authorizing) FrontendURL() string {
	return a.frontendURL
}

// CancelAuthorization aborts the in-flight attempt and transitions back to
// NotAuthorized. It returns nil when this instance is no longer current (the
// attempt already completed or was cancelled); the attempt's outcome stands
// in that case.
func (a *Authorizing) CancelAuthorization() *NotAuthorized {
	next := &NotAuthorized{manager: a.manager, frontendURL: a.frontendURL}
	if a.manager.states.ChangeState(a, next) == nil {
		return nil
	}

	a.cancelFn()
	a.manager.auth.Cancel()
	telemetry.SessionStateChanged(next.Name(), telemetry.ReasonAuthorizationCancelled)
	return next
}

// CheckLicenseStatus requests an immediate license re-check, e.g. after the
// user reports having accepted the agreement in the browser. A no-op unless
// the attempt is currently waiting for license acceptance.
func (a *Authorizing) CheckLicenseStatus() {
	select {
	case a.checkCh <- struct{}{}:
	default:
	}
}

// NotifyLicenseAccepted reports a license-acceptance outcome observed
// externally (the frontend posting back through the host). The attempt
// completes only when userID matches the authorizing user and accepted is
// true; anything else is ignored.
func (a *Authorizing) NotifyLicenseAccepted(userID string, accepted bool) {
	select {
	case a.acceptedCh <- licenseDecision{userID: userID, accepted: accepted}:
	default:
	}
}

// run executes the authorization attempt. The deferred transition fires
// exactly once regardless of which step fails: whoever still holds the
// current-state slot when run finishes decides the terminal state, and a
// concurrent cancel that already swapped the state wins.
func (a *Authorizing) run() {
	var authorized *Authorized

	defer func() {
		var next UserState
		if authorized != nil {
			next = authorized
		} else {
			next = &NotAuthorized{manager: a.manager, frontendURL: a.frontendURL}
		}

		if a.manager.states.ChangeState(a, next) == nil {
			return
		}
		if authorized != nil {
			authorized.start()
			telemetry.SessionStateChanged(authorized.Name(), telemetry.ReasonAuthorizationSucceeded)

			info := authorized.UserInfo()
			name := info.Name
			if name == "" {
				name = info.Email
			}
			api.GetNotificationHandler().Notify(api.NotificationInfo, "Logged in", "Logged in as "+name)
		}
	}()

	client := a.manager.newClient(a.frontendURL)

	provider, err := client.GetOAuthProviderData(a.ctx)
	if err != nil {
		a.fail("Could not reach the cloud service: %v", err)
		return
	}
	if u, err := url.Parse(provider.AuthURL); err != nil || u.Scheme == "" || u.Host == "" {
		a.fail("The cloud service advertised an invalid authorization URL: %q", provider.AuthURL)
		return
	}

	creds, err := a.manager.auth.Authenticate(a.ctx, browserauth.Request{
		CallbackPort: a.manager.callbackPort,
		Provider:     *provider,
	})
	if err != nil {
		if errors.Is(err, browserauth.ErrCancelled) || a.ctx.Err() != nil {
			return
		}
		a.fail("Browser authorization failed: %v", err)
		return
	}

	accessToken, ok := creds.AccessToken()
	if !ok {
		a.fail("The authorization flow returned no usable access token")
		return
	}

	userAPI := client.UserAPI(cloudapi.StaticTokenSource(accessToken))
	info, err := userAPI.GetUserInfo(a.ctx)
	if err != nil {
		a.fail("Could not fetch user info: %v", err)
		return
	}

	if a.manager.licenseGate {
		if !a.waitForLicenseAcceptance(userAPI, info.ID) {
			return
		}
	}

	authorized = newAuthorized(a.manager, client, *info, creds)
}

// fail logs the failure and notifies the user, unless the attempt was
// cancelled in the meantime.
func (a *Authorizing) fail(format string, args ...interface{}) {
	if a.ctx.Err() != nil {
		return
	}
	logging.Error("Session", nil, "Authorization failed: "+format, args...)
	api.GetNotificationHandler().Notify(api.NotificationError, "Authorization failed",
		fmt.Sprintf(format, args...))
}

// waitForLicenseAcceptance blocks until every license is accepted, the
// overall authorization budget runs out, or the attempt is cancelled. Three
// sources can end the wait: the polling timer, a manual CheckLicenseStatus
// trigger, and an external NotifyLicenseAccepted report.
//
// The polling timer starts at the base interval and backs off: after each
// tick the delay is multiplied by the number of whole minutes elapsed plus
// one. It never resets within an attempt.
func (a *Authorizing) waitForLicenseAcceptance(userAPI *cloudapi.UserAPI, userID string) bool {
	ctx, cancel := context.WithTimeout(a.ctx, a.manager.authorizationTimeout)
	defer cancel()

	start := time.Now()
	delay := a.manager.licenseCheckBaseDelay
	timer := time.NewTimer(delay)
	defer timer.Stop()

	allAccepted := func() bool {
		licenses, err := userAPI.GetUserLicenses(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn("Session", "License check failed, will retry: %v", err)
			}
			return false
		}
		return !cloud.HasMissingLicense(licenses)
	}

	if allAccepted() {
		return true
	}
	api.GetNotificationHandler().Notify(api.NotificationWarning, "License agreement required",
		"Accept the license agreement in the browser to finish logging in")

	for {
		select {
		case <-ctx.Done():
			// Timeout ends the attempt the same way a cancel does: quietly.
			// The license-required warning above is all the user sees.
			if a.ctx.Err() == nil {
				logging.Info("Session", "Authorization expired waiting for license acceptance")
			}
			return false

		case <-timer.C:
			if allAccepted() {
				return true
			}
			delay *= time.Duration(int(time.Since(start).Minutes()) + 1)
			timer.Reset(delay)

		case <-a.checkCh:
			if allAccepted() {
				return true
			}

		case decision := <-a.acceptedCh:
			if decision.userID == userID && decision.accepted {
				return true
			}
		}
	}
}
