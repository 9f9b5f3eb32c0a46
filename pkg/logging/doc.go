// Package logging provides a structured logging facade for nimbus built on
// Go's standard slog package.
//
// All log entries carry a subsystem identifier so that session, cloud API,
// and CLI output can be filtered independently:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Session", "state changed to %s", state)
//	logging.Error("CloudAPI", err, "provider data fetch failed")
//
// Token values must never be passed to this package; log server URLs and
// user identifiers only.
package logging
