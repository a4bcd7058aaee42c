package surveys

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the survey schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create surveys table",
			SQL: `
				CREATE TABLE IF NOT EXISTS surveys (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					creator_id BIGINT NOT NULL REFERENCES users(id),
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'open',
					is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
					visibility_scope VARCHAR(20) NOT NULL DEFAULT 'company',
					target_id BIGINT,
					questions JSONB NOT NULL DEFAULT '[]',
					closes_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_surveys_tenant_id ON surveys(tenant_id);
				CREATE INDEX idx_surveys_status ON surveys(status);
			`,
		},
		{
			Version:     2,
			Description: "Create survey_responses table",
			SQL: `
				CREATE TABLE IF NOT EXISTS survey_responses (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					survey_id BIGINT NOT NULL REFERENCES surveys(id) ON DELETE CASCADE,
					respondent_id BIGINT NOT NULL REFERENCES users(id),
					answers JSONB NOT NULL DEFAULT '[]',
					created_at TIMESTAMP NOT NULL,
					UNIQUE(survey_id, respondent_id)
				);

				CREATE INDEX idx_survey_responses_survey_id ON survey_responses(survey_id);
				CREATE INDEX idx_survey_responses_tenant_id ON survey_responses(tenant_id);
			`,
		},
	}
}
