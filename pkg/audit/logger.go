package audit

import (
	"context"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/contextkeys"
	"github.com/crewdesk/crewdesk/pkg/observability"
)

// Logger records audit events. Implementations must never fail the
// request path: an audit write error is logged and swallowed upstream.
type Logger interface {
	Log(ctx context.Context, event *Event)
}

// AuthFailure records a failed or throttled authentication attempt.
// tenantID may be zero when the tenant could not be resolved.
func AuthFailure(ctx context.Context, l Logger, tenantID int64, identifier, reason string) {
	e := &Event{
		Type:      EventTypeAuthLoginFailed,
		Action:    "login",
		Reason:    reason,
		RequestID: contextkeys.GetRequestID(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if reason == string(authz.KindRateLimited) {
		e.Type = EventTypeAuthRateLimited
	}
	if tenantID != 0 {
		e.TenantID = &tenantID
	}
	e.ResourceKind = string(authz.KindUser)
	e.ResourceID = identifier
	l.Log(ctx, e)
}

// Denial records an authorization denial for an authenticated
// principal.
func Denial(ctx context.Context, l Logger, p *authz.Principal, req authz.Request, resourceID, reason string) {
	e := &Event{
		Type:         EventTypeAccessDenied,
		Action:       string(req.Action),
		ResourceKind: string(req.Kind),
		ResourceID:   resourceID,
		Reason:       reason,
		RequestID:    contextkeys.GetRequestID(ctx),
		CreatedAt:    time.Now().UTC(),
	}
	if p != nil {
		e.PrincipalID = &p.UserID
		e.TenantID = &p.TenantID
	}
	l.Log(ctx, e)
}

// SlogLogger writes audit events through the structured logger.
type SlogLogger struct {
	log *observability.Logger
}

// NewSlogLogger creates a logger-backed audit sink.
func NewSlogLogger(log *observability.Logger) *SlogLogger {
	return &SlogLogger{log: log}
}

// Log implements Logger.
func (s *SlogLogger) Log(_ context.Context, event *Event) {
	fields := map[string]interface{}{
		"audit":         true,
		"type":          string(event.Type),
		"action":        event.Action,
		"resource_kind": event.ResourceKind,
	}
	if event.PrincipalID != nil {
		fields["principal_id"] = *event.PrincipalID
	}
	if event.TenantID != nil {
		fields["tenant_id"] = *event.TenantID
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	s.log.WithFields(fields).Info("audit event")
}

// MultiLogger fans events out to several sinks.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a fan-out audit logger.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log implements Logger.
func (m *MultiLogger) Log(ctx context.Context, event *Event) {
	for _, l := range m.loggers {
		l.Log(ctx, event)
	}
}

// NopLogger discards events. Used in tests.
type NopLogger struct{}

// Log implements Logger.
func (NopLogger) Log(context.Context, *Event) {}
