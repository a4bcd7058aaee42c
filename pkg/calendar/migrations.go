package calendar

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the calendar schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create calendar_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS calendar_events (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					creator_id BIGINT NOT NULL REFERENCES users(id),
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					location VARCHAR(255) NOT NULL DEFAULT '',
					starts_at TIMESTAMP NOT NULL,
					ends_at TIMESTAMP NOT NULL,
					visibility_scope VARCHAR(20) NOT NULL DEFAULT 'company',
					target_id BIGINT,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_calendar_events_tenant_id ON calendar_events(tenant_id);
				CREATE INDEX idx_calendar_events_starts_at ON calendar_events(starts_at);
			`,
		},
	}
}
