package audit

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/pkg/observability"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			principal_id INTEGER,
			tenant_id INTEGER,
			event_type TEXT NOT NULL,
			action TEXT NOT NULL,
			resource_kind TEXT NOT NULL DEFAULT '',
			resource_id TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	require.NoError(t, err)
	return db
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestDBLoggerWriteAndList(t *testing.T) {
	db := setupTestDB(t)
	logger := NewDBLogger(db, testLogger())
	ctx := context.Background()

	principal := int64(42)
	tenant := int64(7)
	logger.Log(ctx, &Event{
		PrincipalID:  &principal,
		TenantID:     &tenant,
		Type:         EventTypeAccessDenied,
		Action:       "delete",
		ResourceKind: "department",
		ResourceID:   "3",
		Reason:       "requires the admin role",
	})
	logger.Log(ctx, &Event{
		TenantID: &tenant,
		Type:     EventTypeAuthLoginFailed,
		Action:   "login",
		Reason:   "invalid_credentials",
	})

	otherTenant := int64(8)
	logger.Log(ctx, &Event{
		TenantID: &otherTenant,
		Type:     EventTypeAuthLoginFailed,
		Action:   "login",
	})

	events, err := logger.List(ctx, ListFilter{TenantID: &tenant})
	require.NoError(t, err)
	require.Len(t, events, 2)

	denied, err := logger.List(ctx, ListFilter{TenantID: &tenant, Type: EventTypeAccessDenied})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, "requires the admin role", denied[0].Reason)
	require.NotNil(t, denied[0].PrincipalID)
	assert.Equal(t, principal, *denied[0].PrincipalID)
}

func TestDBLoggerPurge(t *testing.T) {
	db := setupTestDB(t)
	logger := NewDBLogger(db, testLogger())
	ctx := context.Background()

	old := &Event{Type: EventTypeAuthLoginFailed, Action: "login", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := &Event{Type: EventTypeAuthLoginFailed, Action: "login"}
	logger.Log(ctx, old)
	logger.Log(ctx, recent)

	n, err := logger.PurgeOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := logger.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
