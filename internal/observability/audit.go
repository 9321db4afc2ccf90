package observability

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AuditEvent captures the request context attached to every audit log line.
type AuditEvent struct {
	Event     string
	Method    string
	Path      string
	RequestID string
	TraceID   string
	SpanID    string
	TS        string
}

// NewAuditEvent builds an AuditEvent from the request. Trace and span IDs
// are empty when no sampled span is active.
func NewAuditEvent(r *http.Request, event string) AuditEvent {
	ev := AuditEvent{
		Event:     event,
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: r.Header.Get("X-Request-Id"),
		TS:        time.Now().UTC().Format(time.RFC3339),
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		ev.TraceID = sc.TraceID().String()
		ev.SpanID = sc.SpanID().String()
	}
	return ev
}

// Attrs renders the event as slog key/value pairs.
func (e AuditEvent) Attrs() []any {
	attrs := []any{
		"event", e.Event,
		"method", e.Method,
		"path", e.Path,
		"request_id", e.RequestID,
		"ts", e.TS,
	}
	if e.TraceID != "" {
		attrs = append(attrs, "trace_id", e.TraceID, "span_id", e.SpanID)
	}
	return attrs
}

// Audit emits a structured audit line for a security-relevant action,
// for example account registration or a login attempt.
func Audit(r *http.Request, event string, attrs ...any) {
	base := NewAuditEvent(r, event).Attrs()
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
