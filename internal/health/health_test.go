package health_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/health"
	"github.com/showlog/showlog/internal/metadata/mock"
	"github.com/showlog/showlog/internal/plexsync"
	"github.com/showlog/showlog/internal/testutil"
)

func TestStatusTransitions(t *testing.T) {
	svc := health.NewService(testutil.NopLogger())
	svc.RegisterItem(health.CategoryDatabase, "sqlite", "Database")

	assert.True(t, svc.IsHealthy(health.CategoryDatabase, "sqlite"))

	svc.SetError(health.CategoryDatabase, "sqlite", "database unreachable")
	item := svc.GetItem(health.CategoryDatabase, "sqlite")
	require.NotNil(t, item)
	assert.Equal(t, health.StatusError, item.Status)
	assert.NotNil(t, item.Timestamp)

	summary := svc.GetSummary()
	assert.True(t, summary.HasIssues)

	svc.ClearStatus(health.CategoryDatabase, "sqlite")
	item = svc.GetItem(health.CategoryDatabase, "sqlite")
	assert.Equal(t, health.StatusOK, item.Status)
	assert.Nil(t, item.Timestamp)
	assert.False(t, svc.GetSummary().HasIssues)
}

func TestRegisterItemKeepsExistingStatus(t *testing.T) {
	svc := health.NewService(testutil.NopLogger())
	svc.RegisterItem(health.CategorySync, "user-1", "Plex sync (user 1)")
	svc.SetWarning(health.CategorySync, "user-1", "last sync completed with errors")

	// Periodic checks re-register on every run.
	svc.RegisterItem(health.CategorySync, "user-1", "Plex sync (user 1)")

	item := svc.GetItem(health.CategorySync, "user-1")
	require.NotNil(t, item)
	assert.Equal(t, health.StatusWarning, item.Status)
}

func TestCheckerReportsSyncOutcomes(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	ctx := context.Background()

	user, err := tdb.Store.CreateUser(ctx, "alpha", "hash")
	require.NoError(t, err)
	_, err = tdb.Store.UpsertIntegration(ctx, store.UpsertIntegrationParams{
		UserID:      user.ID,
		Provider:    plexsync.ProviderPlex,
		AccessToken: "token",
		ServerURL:   "http://plex.local:32400",
		Enabled:     true,
		AutoSync:    true,
	})
	require.NoError(t, err)
	_, err = tdb.Store.CreateSyncLog(ctx, store.CreateSyncLogParams{
		UserID:   user.ID,
		Provider: plexsync.ProviderPlex,
		Status:   plexsync.StatusError,
		Errors:   sql.NullString{String: "Failed to sync Breaking Bad: server unreachable", Valid: true},
	})
	require.NoError(t, err)

	svc := health.NewService(testutil.NopLogger())
	checker := health.NewChecker(svc, tdb.Conn, tdb.Store, mock.NewTVDBClient(), tdb.Path, testutil.NopLogger())

	require.NoError(t, checker.Run(ctx))

	assert.True(t, svc.IsHealthy(health.CategoryDatabase, "sqlite"))
	assert.True(t, svc.IsHealthy(health.CategoryStorage, "data-dir"))
	assert.True(t, svc.IsHealthy(health.CategoryMetadata, "tvdb-mock"))

	item := svc.GetItem(health.CategorySync, "user-1")
	require.NotNil(t, item)
	assert.Equal(t, health.StatusError, item.Status)
	assert.Contains(t, item.Message, "server unreachable")

	// Disabling auto sync drops the item on the next run.
	_, err = tdb.Store.UpsertIntegration(ctx, store.UpsertIntegrationParams{
		UserID:      user.ID,
		Provider:    plexsync.ProviderPlex,
		AccessToken: "token",
		ServerURL:   "http://plex.local:32400",
		Enabled:     true,
		AutoSync:    false,
	})
	require.NoError(t, err)

	require.NoError(t, checker.Run(ctx))
	assert.Nil(t, svc.GetItem(health.CategorySync, "user-1"))
}
