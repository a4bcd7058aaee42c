package authz

import "net/http"

// Kind classifies a policy-layer failure. Kinds are distinguished internally
// for auditing; externally several kinds collapse onto the same HTTP status
// (all token failures surface as 401, cross-tenant and out-of-scope lookups
// surface as a plain 404).
type Kind string

const (
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindAccountDisabled     Kind = "account_disabled"
	KindInvalidToken        Kind = "invalid_token"
	KindTokenExpired        Kind = "token_expired"
	KindInvalidTokenType    Kind = "invalid_token_type"
	KindRateLimited         Kind = "rate_limited"
	KindForbidden           Kind = "forbidden"
	KindSelfActionForbidden Kind = "self_action_forbidden"
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotFound            Kind = "not_found"
)

// Error is a policy-layer failure with a machine-readable kind and a
// human-readable reason. The reason is safe to return to the caller.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return e.Reason
}

// HTTPStatus maps the error kind to the externally visible status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidCredentials, KindAccountDisabled,
		KindInvalidToken, KindTokenExpired, KindInvalidTokenType:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindForbidden, KindSelfActionForbidden:
		return http.StatusForbidden
	case KindInvalidTransition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Errf constructs an Error with the given kind and reason.
func Errf(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Common sentinel errors. NotFound deliberately carries no detail: a resource
// that is absent, cross-tenant, or out of visibility scope must be
// indistinguishable from the caller's point of view.
var (
	ErrInvalidCredentials = Errf(KindInvalidCredentials, "invalid username or password")
	ErrAccountDisabled    = Errf(KindAccountDisabled, "account is disabled")
	ErrInvalidToken       = Errf(KindInvalidToken, "invalid token")
	ErrTokenExpired       = Errf(KindTokenExpired, "token expired")
	ErrInvalidTokenType   = Errf(KindInvalidTokenType, "invalid token type")
	ErrRateLimited        = Errf(KindRateLimited, "too many attempts")
	ErrNotFound           = Errf(KindNotFound, "not found")
	ErrSelfAction         = Errf(KindSelfActionForbidden, "you cannot perform this action on your own account")
)
