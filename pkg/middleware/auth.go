package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/contextkeys"
	"github.com/crewdesk/crewdesk/pkg/httputil"
)

// Verifier turns a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*authz.Principal, error)
}

// Auth verifies the Authorization bearer token and stores the resulting
// Principal in the request context. Requests without a valid token get
// a 401; the distinction between expired and otherwise invalid tokens
// is carried in the message.
func Auth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				httputil.WriteUnauthorized(w, "missing bearer token")
				return
			}

			p, err := verifier.Verify(r.Context(), token)
			if err != nil {
				var perr *authz.Error
				if errors.As(err, &perr) {
					httputil.WriteUnauthorized(w, perr.Reason)
				} else {
					httputil.WriteUnauthorized(w, "invalid token")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(contextkeys.WithPrincipal(r.Context(), p)))
		})
	}
}

// Principal returns the authenticated principal stored by Auth, or nil.
func Principal(ctx context.Context) *authz.Principal {
	p, _ := ctx.Value(contextkeys.PrincipalKey).(*authz.Principal)
	return p
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
