package api

import (
	"sync"

	"nimbus/pkg/logging"
)

// NotificationLevel classifies a user-visible notification.
type NotificationLevel string

const (
	// NotificationInfo is informational ("logged in as ...").
	NotificationInfo NotificationLevel = "info"

	// NotificationWarning indicates a recoverable problem (offline, transient
	// license-check failure).
	NotificationWarning NotificationLevel = "warning"

	// NotificationError indicates a failed authorization attempt or another
	// terminal, user-visible error.
	NotificationError NotificationLevel = "error"
)

// NotificationHandler receives user-visible notifications from the session
// core. Implementations must not block.
type NotificationHandler interface {
	// Notify delivers a notification to the user.
	Notify(level NotificationLevel, title, message string)
}

// TelemetryHandler receives fire-and-forget telemetry events. Implementations
// must not block and must swallow their own errors.
type TelemetryHandler interface {
	// Emit records a telemetry event with free-form attributes.
	Emit(event string, attrs map[string]string)
}

var (
	handlerMu           sync.RWMutex
	notificationHandler NotificationHandler
	telemetryHandler    TelemetryHandler
)

// RegisterNotificationHandler registers the notification handler
// implementation. Only one handler can be registered at a time; subsequent
// registrations replace the previous handler.
//
// Thread-safe: Yes, protected by handlerMu.
func RegisterNotificationHandler(h NotificationHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	logging.Debug("API", "Registering notification handler: %v", h != nil)
	notificationHandler = h
}

// RegisterTelemetryHandler registers the telemetry handler implementation.
// Only one handler can be registered at a time; subsequent registrations
// replace the previous handler.
//
// Thread-safe: Yes, protected by handlerMu.
func RegisterTelemetryHandler(h TelemetryHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	logging.Debug("API", "Registering telemetry handler: %v", h != nil)
	telemetryHandler = h
}

// GetNotificationHandler returns the registered notification handler, or a
// logging fallback when none is registered.
func GetNotificationHandler() NotificationHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	if notificationHandler == nil {
		return loggingNotificationHandler{}
	}
	return notificationHandler
}

// GetTelemetryHandler returns the registered telemetry handler, or a no-op
// fallback when none is registered.
func GetTelemetryHandler() TelemetryHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	if telemetryHandler == nil {
		return noopTelemetryHandler{}
	}
	return telemetryHandler
}

// loggingNotificationHandler routes notifications to the log when no host
// handler is registered.
type loggingNotificationHandler struct{}

func (loggingNotificationHandler) Notify(level NotificationLevel, title, message string) {
	switch level {
	case NotificationError:
		logging.Error("Notification", nil, "%s: %s", title, message)
	case NotificationWarning:
		logging.Warn("Notification", "%s: %s", title, message)
	default:
		logging.Info("Notification", "%s: %s", title, message)
	}
}

// noopTelemetryHandler drops telemetry when no host handler is registered.
type noopTelemetryHandler struct{}

func (noopTelemetryHandler) Emit(string, map[string]string) {}
