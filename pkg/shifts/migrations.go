package shifts

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the shift planning schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create shift templates table",
			SQL: `
				CREATE TABLE IF NOT EXISTS shift_templates (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					name VARCHAR(255) NOT NULL,
					start_time VARCHAR(5) NOT NULL,
					end_time VARCHAR(5) NOT NULL,
					color VARCHAR(20) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_shift_templates_tenant ON shift_templates(tenant_id);
			`,
		},
		{
			Version:     2,
			Description: "Create shift plans table",
			SQL: `
				CREATE TABLE IF NOT EXISTS shift_plans (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					name VARCHAR(255) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'draft',
					starts_on VARCHAR(10) NOT NULL,
					ends_on VARCHAR(10) NOT NULL,
					created_by BIGINT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_shift_plans_tenant ON shift_plans(tenant_id, status);
			`,
		},
		{
			Version:     3,
			Description: "Create shift assignments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS shift_assignments (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					plan_id BIGINT NOT NULL,
					template_id BIGINT NOT NULL,
					user_id BIGINT NOT NULL,
					day VARCHAR(10) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE (plan_id, user_id, day)
				);
				CREATE INDEX IF NOT EXISTS idx_shift_assignments_user ON shift_assignments(tenant_id, user_id, day);
			`,
		},
		{
			Version:     4,
			Description: "Create shift swap requests table",
			SQL: `
				CREATE TABLE IF NOT EXISTS shift_swap_requests (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					assignment_id BIGINT NOT NULL,
					requester_id BIGINT NOT NULL,
					addressee_id BIGINT NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					note TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_shift_swaps_addressee ON shift_swap_requests(tenant_id, addressee_id, status);
			`,
		},
	}
}
