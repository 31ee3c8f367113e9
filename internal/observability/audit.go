package observability

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Audit emits a structured security-audit log line for a request. Events
// include integrity violations, device bans being hit, and first-time
// registrations; these are reviewed separately from regular request logs.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"audit_id", uuid.NewString(),
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
	}
	if span := trace.SpanContextFromContext(r.Context()); span.HasTraceID() {
		base = append(base, "trace_id", span.TraceID().String())
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
