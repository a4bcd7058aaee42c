package auth

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the session schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create sessions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sessions (
					id VARCHAR(36) PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					device_fingerprint VARCHAR(255) NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL,
					last_seen_at TIMESTAMP,
					expires_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX idx_sessions_tenant_id ON sessions(tenant_id);
				CREATE INDEX idx_sessions_expires_at ON sessions(expires_at);
			`,
		},
	}
}
