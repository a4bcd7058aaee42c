package notifications

import "github.com/crewdesk/crewdesk/pkg/storage"

// GetMigrations returns the notification schema migrations.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create notifications table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notifications (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					sender_id BIGINT NOT NULL,
					title VARCHAR(255) NOT NULL,
					body TEXT NOT NULL DEFAULT '',
					visibility_scope VARCHAR(20) NOT NULL DEFAULT 'company',
					target_id BIGINT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_notifications_tenant ON notifications(tenant_id, created_at);
			`,
		},
		{
			Version:     2,
			Description: "Create notification read markers table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notification_reads (
					notification_id BIGINT NOT NULL,
					user_id BIGINT NOT NULL,
					read_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (notification_id, user_id)
				);
			`,
		},
		{
			Version:     3,
			Description: "Create notification preferences table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notification_preferences (
					tenant_id BIGINT NOT NULL,
					user_id BIGINT NOT NULL,
					email_enabled BOOLEAN NOT NULL DEFAULT TRUE,
					push_enabled BOOLEAN NOT NULL DEFAULT TRUE,
					shift_alerts BOOLEAN NOT NULL DEFAULT TRUE,
					kvp_updates BOOLEAN NOT NULL DEFAULT TRUE,
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (tenant_id, user_id)
				);
			`,
		},
	}
}
