// Package telemetry emits fire-and-forget events for session lifecycle
// transitions, keyed by (new state, triggering reason).
//
// Delivery goes through the handler registered in internal/api; when none is
// registered events are dropped. Emission never blocks and never surfaces
// errors to the session core.
package telemetry
