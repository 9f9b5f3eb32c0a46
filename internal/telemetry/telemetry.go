package telemetry

import (
	"github.com/google/uuid"

	"nimbus/internal/api"
	"nimbus/pkg/logging"
)

// Reason identifies why a session-state telemetry event was emitted.
type Reason string

const (
	// ReasonAuthorizationSucceeded indicates a completed OAuth attempt.
	ReasonAuthorizationSucceeded Reason = "AuthorizationSucceeded"

	// ReasonAuthorizationCancelled indicates a user-cancelled OAuth attempt.
	ReasonAuthorizationCancelled Reason = "AuthorizationCancelled"

	// ReasonRefreshTokenRejected indicates the server rejected the refresh
	// token and the session was force-logged-out.
	ReasonRefreshTokenRejected Reason = "RefreshTokenRejected"

	// ReasonLoggedOut indicates a user-initiated logout.
	ReasonLoggedOut Reason = "LoggedOut"
)

// SessionStateChanged emits a fire-and-forget event recording a session
// state transition and its trigger. Emission never blocks the session core
// and failures never affect control flow.
func SessionStateChanged(newState string, reason Reason) {
	event := map[string]string{
		"event_id":  uuid.NewString(),
		"new_state": newState,
		"reason":    string(reason),
	}

	defer func() {
		// A telemetry handler must never take the session down.
		if r := recover(); r != nil {
			logging.Warn("Telemetry", "Telemetry handler panicked: %v", r)
		}
	}()

	logging.Debug("Telemetry", "Session state changed: state=%s reason=%s", newState, reason)
	api.GetTelemetryHandler().Emit("session_state_changed", event)
}
