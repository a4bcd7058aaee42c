package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

// createTenant provisions a tenant. With activate set the trial is
// skipped and the tenant starts active.
func createTenant(ctx context.Context, db *sql.DB, name, subdomain string, trialDays int, activate bool) (*tenants.Tenant, error) {
	if name == "" || subdomain == "" {
		return nil, errors.New("name and subdomain are required")
	}
	if !tenants.ValidSubdomain(subdomain) {
		return nil, fmt.Errorf("invalid subdomain %q", subdomain)
	}

	store := tenants.NewStore(db)
	ends := time.Now().UTC().AddDate(0, 0, trialDays)
	t := &tenants.Tenant{Name: name, Subdomain: subdomain, TrialEndsAt: &ends}
	if err := store.Create(ctx, t); err != nil {
		return nil, err
	}
	if activate {
		return store.Transition(ctx, t.ID, tenants.StatusActive)
	}
	return t, nil
}

// createRoot provisions a root account. Root accounts live in the
// reserved system tenant and cannot be created over the API.
func createRoot(ctx context.Context, db *sql.DB, username, email, password string) (*users.User, error) {
	if username == "" || email == "" {
		return nil, errors.New("username and email are required")
	}
	if len(password) < 12 {
		return nil, errors.New("root password must be at least 12 characters")
	}

	tenantStore := tenants.NewStore(db)
	if _, err := tenantStore.GetByID(ctx, authz.SystemTenantID); err != nil {
		// First run: the system tenant does not exist yet. It must come
		// out with the reserved id, so it has to be the first row ever.
		count, cerr := tenantStore.Count(ctx)
		if cerr != nil {
			return nil, cerr
		}
		if count != 0 {
			return nil, fmt.Errorf("system tenant %d is missing but tenants exist; refusing to guess", authz.SystemTenantID)
		}
		sys := &tenants.Tenant{Name: "System", Subdomain: "system"}
		if err := tenantStore.Create(ctx, sys); err != nil {
			return nil, err
		}
		if _, err := tenantStore.Transition(ctx, sys.ID, tenants.StatusActive); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &users.User{
		TenantID:     authz.SystemTenantID,
		Username:     username,
		Email:        email,
		Role:         authz.RoleRoot,
		PasswordHash: hash,
	}
	if err := users.NewStore(db).Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func newCreateTenantCommand() *Command {
	fs := flag.NewFlagSet("create-tenant", flag.ExitOnError)
	name := fs.String("name", "", "Display name of the tenant")
	subdomain := fs.String("subdomain", "", "Subdomain the tenant is addressed by")
	trialDays := fs.Int("trial-days", 30, "Length of the trial period")
	activate := fs.Bool("activate", false, "Skip the trial and activate immediately")

	return &Command{
		Name:        "create-tenant",
		Description: "Provision a new tenant",
		Flags:       fs,
		Run: func(args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			t, err := createTenant(ctx, db, *name, *subdomain, *trialDays, *activate)
			if err != nil {
				return err
			}
			fmt.Printf("tenant %d (%s) created, status %s\n", t.ID, t.Subdomain, t.Status)
			return nil
		},
	}
}

func newCreateRootCommand() *Command {
	fs := flag.NewFlagSet("create-root", flag.ExitOnError)
	username := fs.String("username", "", "Login name of the root account")
	email := fs.String("email", "", "Email of the root account")
	password := fs.String("password", "", "Initial password (min 12 characters)")

	return &Command{
		Name:        "create-root",
		Description: "Create a root account in the system tenant",
		Flags:       fs,
		Run: func(args []string) error {
			if err := fs.Parse(args); err != nil {
				return err
			}
			ctx := context.Background()
			db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := createRoot(ctx, db, *username, *email, *password)
			if err != nil {
				return err
			}
			fmt.Printf("root account %d (%s) created\n", u.ID, u.Username)
			return nil
		},
	}
}
