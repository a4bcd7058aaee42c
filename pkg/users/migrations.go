package users

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the user schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					username VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					first_name VARCHAR(255) NOT NULL DEFAULT '',
					last_name VARCHAR(255) NOT NULL DEFAULT '',
					role VARCHAR(20) NOT NULL DEFAULT 'employee',
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					department_id BIGINT,
					team_id BIGINT,
					points INT NOT NULL DEFAULT 0,
					password_hash VARCHAR(255) NOT NULL,
					last_login_at TIMESTAMP,
					deleted_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL,
					UNIQUE(tenant_id, username),
					UNIQUE(tenant_id, email)
				);

				CREATE INDEX idx_users_tenant_id ON users(tenant_id);
				CREATE INDEX idx_users_department_id ON users(department_id);
				CREATE INDEX idx_users_team_id ON users(team_id);
				CREATE INDEX idx_users_role ON users(role);
			`,
		},
	}
}
