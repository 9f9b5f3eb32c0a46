// Package api provides the central handler registry for nimbus side
// channels.
//
// The session core reports two kinds of out-of-band information: user
// visible notifications (authorization failures, malformed provider data)
// and telemetry events (state transitions and their triggers). Both are
// consumed by host-specific code (an IDE panel, a CLI printer, a stats
// pipeline) that the core must not import directly.
//
// Host integrations implement NotificationHandler and TelemetryHandler and
// register them during startup:
//
//	api.RegisterNotificationHandler(myPanel)
//	api.RegisterTelemetryHandler(myStats)
//
// Handlers are optional. When none is registered the accessors return
// logging fallbacks, so emitting code never checks for nil and delivery
// failures never affect control flow.
package api
