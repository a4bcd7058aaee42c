package tenants

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the tenant schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create tenants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenants (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					subdomain VARCHAR(63) NOT NULL UNIQUE,
					status VARCHAR(20) NOT NULL DEFAULT 'trial',
					trial_ends_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_tenants_subdomain ON tenants(subdomain);
				CREATE INDEX idx_tenants_status ON tenants(status);
			`,
		},
		{
			Version:     2,
			Description: "Seed system tenant",
			SQL: `
				INSERT INTO tenants (id, name, subdomain, status, created_at, updated_at)
				VALUES (1, 'System', 'system', 'active', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
				ON CONFLICT (id) DO NOTHING;
			`,
		},
	}
}
