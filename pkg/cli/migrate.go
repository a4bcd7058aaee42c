package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/calendar"
	"github.com/crewdesk/crewdesk/pkg/config"
	"github.com/crewdesk/crewdesk/pkg/departments"
	"github.com/crewdesk/crewdesk/pkg/kvp"
	"github.com/crewdesk/crewdesk/pkg/notifications"
	"github.com/crewdesk/crewdesk/pkg/shifts"
	"github.com/crewdesk/crewdesk/pkg/storage"
	"github.com/crewdesk/crewdesk/pkg/surveys"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

// component couples a migration set with its tracking name.
type component struct {
	name       string
	migrations []storage.Migration
}

func components() []component {
	return []component{
		{"tenants", tenants.GetMigrations()},
		{"users", users.GetMigrations()},
		{"auth", auth.GetMigrations()},
		{"audit", audit.GetMigrations()},
		{"departments", departments.GetMigrations()},
		{"kvp", kvp.GetMigrations()},
		{"calendar", calendar.GetMigrations()},
		{"surveys", surveys.GetMigrations()},
		{"notifications", notifications.GetMigrations()},
		{"shifts", shifts.GetMigrations()},
	}
}

// MigrateAll applies every component's migrations in dependency order.
func MigrateAll(ctx context.Context, db *sql.DB) error {
	for _, c := range components() {
		if err := storage.Migrate(ctx, db, c.name, c.migrations); err != nil {
			return fmt.Errorf("migrate %s: %w", c.name, err)
		}
	}
	return nil
}

func openDB(ctx context.Context) (*sql.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, cfg.Database)
}

func newMigrateCommand() *Command {
	return &Command{
		Name:        "migrate",
		Description: "Apply all database migrations",
		Run: func(args []string) error {
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := MigrateAll(ctx, db); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
