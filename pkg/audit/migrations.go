package audit

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the audit schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create audit_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_events (
					id BIGSERIAL PRIMARY KEY,
					principal_id BIGINT,
					tenant_id BIGINT,
					event_type VARCHAR(64) NOT NULL,
					action VARCHAR(64) NOT NULL,
					resource_kind VARCHAR(64) NOT NULL DEFAULT '',
					resource_id VARCHAR(255) NOT NULL DEFAULT '',
					reason TEXT NOT NULL DEFAULT '',
					request_id VARCHAR(36) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_audit_events_tenant_id ON audit_events(tenant_id);
				CREATE INDEX idx_audit_events_principal_id ON audit_events(principal_id);
				CREATE INDEX idx_audit_events_event_type ON audit_events(event_type);
				CREATE INDEX idx_audit_events_created_at ON audit_events(created_at);
			`,
		},
	}
}
