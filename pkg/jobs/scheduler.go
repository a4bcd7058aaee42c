// Package jobs runs the periodic maintenance work: session expiry,
// tenant trial expiry, audit retention, counter cleanup, and metrics
// gauge refresh.
package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/observability"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

// jobTimeout bounds each run so a stuck database cannot pile up
// overlapping executions.
const jobTimeout = 2 * time.Minute

// Deps are the stores and sinks the jobs operate on. Counter and
// Metrics are optional; nil disables the corresponding job.
type Deps struct {
	DB       *sql.DB
	Sessions *auth.SessionStore
	Tenants  *tenants.Store
	Users    *users.Store
	Audit    *audit.DBLogger
	Counter  *auth.MemoryCounter
	Metrics  *observability.Metrics
	Log      *observability.Logger

	AuditRetentionDays int
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	deps Deps
	log  *observability.Logger
}

// NewScheduler registers all maintenance jobs.
func NewScheduler(deps Deps) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(),
		deps: deps,
		log:  deps.Log.WithField("component", "jobs"),
	}

	entries := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"@every 15m", "session_cleanup", s.CleanupSessions},
		{"@hourly", "trial_expiry", s.ExpireTrials},
		{"@daily", "audit_retention", s.PurgeAudit},
		{"@every 1m", "metrics_refresh", s.RefreshMetrics},
		{"@every 10m", "counter_cleanup", func(context.Context) { s.CleanupCounters() }},
	}
	for _, e := range entries {
		e := e
		_, err := s.cron.AddFunc(e.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			e.run(ctx)
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("maintenance scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("maintenance scheduler stopped")
}

// CleanupSessions deletes sessions past their expiry.
func (s *Scheduler) CleanupSessions(ctx context.Context) {
	n, err := s.deps.Sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Error("session cleanup failed")
		return
	}
	if n > 0 {
		s.log.WithField("deleted", n).Info("expired sessions removed")
	}
}

// ExpireTrials suspends tenants whose trial has run out.
func (s *Scheduler) ExpireTrials(ctx context.Context) {
	n, err := s.deps.Tenants.ExpireTrials(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Error("trial expiry failed")
		return
	}
	if n > 0 {
		s.log.WithField("suspended", n).Info("expired trials suspended")
	}
}

// PurgeAudit drops audit events past the retention window.
func (s *Scheduler) PurgeAudit(ctx context.Context) {
	if s.deps.AuditRetentionDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -s.deps.AuditRetentionDays)
	n, err := s.deps.Audit.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("audit purge failed")
		return
	}
	if n > 0 {
		s.log.WithField("purged", n).Info("audit events purged")
	}
}

// CleanupCounters drops settled in-memory rate limit buckets.
func (s *Scheduler) CleanupCounters() {
	if s.deps.Counter == nil {
		return
	}
	s.deps.Counter.Cleanup()
}

// RefreshMetrics updates the business and pool gauges.
func (s *Scheduler) RefreshMetrics(ctx context.Context) {
	m := s.deps.Metrics
	if m == nil {
		return
	}

	if n, err := s.deps.Sessions.CountActive(ctx, time.Now().UTC()); err == nil {
		m.ActiveSessionsGauge.Set(float64(n))
	}
	if n, err := s.deps.Tenants.Count(ctx); err == nil {
		m.TenantsTotal.Set(float64(n))
	}
	if n, err := s.deps.Users.CountActiveAll(ctx); err == nil {
		m.ActiveUsersTotal.Set(float64(n))
	}
	if s.deps.DB != nil {
		stats := s.deps.DB.Stats()
		m.DBConnectionsActive.Set(float64(stats.InUse))
		m.DBConnectionsIdle.Set(float64(stats.Idle))
	}
}
