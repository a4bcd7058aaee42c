package kvp

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the suggestion schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create kvp_suggestions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS kvp_suggestions (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					submitter_id BIGINT NOT NULL REFERENCES users(id),
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					category VARCHAR(100) NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'submitted',
					visibility_scope VARCHAR(20) NOT NULL DEFAULT 'company',
					target_id BIGINT,
					is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
					points INT NOT NULL DEFAULT 0,
					review_note TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_kvp_suggestions_tenant_id ON kvp_suggestions(tenant_id);
				CREATE INDEX idx_kvp_suggestions_submitter_id ON kvp_suggestions(submitter_id);
				CREATE INDEX idx_kvp_suggestions_status ON kvp_suggestions(status);
			`,
		},
	}
}
