package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/crewdesk/crewdesk/pkg/contextkeys"
)

// RequestIDHeader is the inbound/outbound request ID header.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID for log and audit
// correlation. An inbound ID from a trusted proxy is kept; otherwise a
// new one is generated. The ID is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(contextkeys.WithRequestID(r.Context(), id)))
	})
}
