package observability

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewAuditEventCapturesRequestContext(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/accounts/login", nil)
	req.Header.Set("X-Request-Id", "req-test-1")

	ev := NewAuditEvent(req, "auth.login.success")

	if ev.Event != "auth.login.success" {
		t.Fatalf("unexpected event name: %s", ev.Event)
	}
	if ev.Method != "POST" || ev.Path != "/api/v1/accounts/login" {
		t.Fatalf("unexpected request fields: %+v", ev)
	}
	if ev.RequestID != "req-test-1" {
		t.Fatalf("unexpected request id: %s", ev.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
		t.Fatalf("expected RFC3339 ts, got %q err=%v", ev.TS, err)
	}
	if ev.TraceID != "" || ev.SpanID != "" {
		t.Fatalf("expected empty trace context without an active span, got %+v", ev)
	}
}

func TestAuditEventAttrsOmitEmptyTrace(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	attrs := NewAuditEvent(req, "task.list").Attrs()

	if len(attrs)%2 != 0 {
		t.Fatalf("attrs must be key/value pairs, got %d elements", len(attrs))
	}
	for i := 0; i < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			t.Fatalf("attr key at %d is not a string: %v", i, attrs[i])
		}
		if key == "trace_id" || key == "span_id" {
			t.Fatalf("did not expect trace attrs without an active span: %v", attrs)
		}
	}
}
