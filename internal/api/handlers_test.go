package api

import (
	"testing"
)

type recordingNotifier struct {
	level   NotificationLevel
	title   string
	message string
	calls   int
}

func (r *recordingNotifier) Notify(level NotificationLevel, title, message string) {
	r.level = level
	r.title = title
	r.message = message
	r.calls++
}

type recordingTelemetry struct {
	event string
	attrs map[string]string
	calls int
}

func (r *recordingTelemetry) Emit(event string, attrs map[string]string) {
	r.event = event
	r.attrs = attrs
	r.calls++
}

func TestNotificationHandlerRegistration(t *testing.T) {
	defer RegisterNotificationHandler(nil)

	rec := &recordingNotifier{}
	RegisterNotificationHandler(rec)

	GetNotificationHandler().Notify(NotificationError, "title", "message")

	if rec.calls != 1 {
		t.Fatalf("expected 1 call, got %d", rec.calls)
	}
	if rec.level != NotificationError || rec.title != "title" || rec.message != "message" {
		t.Errorf("unexpected notification: %+v", rec)
	}
}

func TestTelemetryHandlerRegistration(t *testing.T) {
	defer RegisterTelemetryHandler(nil)

	rec := &recordingTelemetry{}
	RegisterTelemetryHandler(rec)

	GetTelemetryHandler().Emit("event", map[string]string{"k": "v"})

	if rec.calls != 1 {
		t.Fatalf("expected 1 call, got %d", rec.calls)
	}
	if rec.event != "event" || rec.attrs["k"] != "v" {
		t.Errorf("unexpected event: %+v", rec)
	}
}

func TestUnregisteredHandlersAreSafe(t *testing.T) {
	RegisterNotificationHandler(nil)
	RegisterTelemetryHandler(nil)

	// Must not panic.
	GetNotificationHandler().Notify(NotificationInfo, "t", "m")
	GetTelemetryHandler().Emit("event", nil)
}
