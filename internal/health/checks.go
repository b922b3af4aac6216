package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/metadata"
	"github.com/showlog/showlog/internal/plexsync"
)

// Item ids used by the checker.
const (
	itemDatabase = "sqlite"
	itemDataDir  = "data-dir"
)

// Checker runs the periodic health checks and feeds the results into the
// health service.
type Checker struct {
	health   *Service
	conn     *sql.DB
	store    *store.Store
	provider metadata.Provider
	dataDir  string
	logger   zerolog.Logger
}

// NewChecker creates a new checker. dataDir is the directory holding the
// SQLite database file.
func NewChecker(healthSvc *Service, conn *sql.DB, st *store.Store, provider metadata.Provider, dataDir string, logger zerolog.Logger) *Checker {
	c := &Checker{
		health:   healthSvc,
		conn:     conn,
		store:    st,
		provider: provider,
		dataDir:  dataDir,
		logger:   logger.With().Str("component", "health-checker").Logger(),
	}

	healthSvc.RegisterItem(CategoryDatabase, itemDatabase, "Database")
	healthSvc.RegisterItem(CategoryStorage, itemDataDir, "Data directory")
	healthSvc.RegisterItem(CategoryMetadata, provider.Name(), "Metadata provider")

	return c
}

// Run performs all checks. Registered as a scheduled task; individual
// check failures are reflected in item status, never returned.
func (c *Checker) Run(ctx context.Context) error {
	c.checkDatabase(ctx)
	c.checkDataDir()
	c.checkProvider(ctx)
	c.checkSyncOutcomes(ctx)
	return nil
}

func (c *Checker) checkDatabase(ctx context.Context) {
	if err := c.conn.PingContext(ctx); err != nil {
		c.health.SetError(CategoryDatabase, itemDatabase, fmt.Sprintf("database unreachable: %v", err))
		return
	}
	c.health.ClearStatus(CategoryDatabase, itemDatabase)
}

func (c *Checker) checkDataDir() {
	if err := checkDirWritable(c.dataDir); err != nil {
		c.health.SetError(CategoryStorage, itemDataDir, err.Error())
		return
	}
	c.health.ClearStatus(CategoryStorage, itemDataDir)
}

func (c *Checker) checkProvider(ctx context.Context) {
	id := c.provider.Name()
	if !c.provider.IsConfigured() {
		c.health.SetWarning(CategoryMetadata, id, "metadata provider is not configured")
		return
	}
	// Providers that expose a probe get a real reachability check.
	if v, ok := c.provider.(interface{ Verify(ctx context.Context) error }); ok {
		if err := v.Verify(ctx); err != nil {
			c.health.SetError(CategoryMetadata, id, fmt.Sprintf("provider unreachable: %v", err))
			return
		}
	}
	c.health.ClearStatus(CategoryMetadata, id)
}

// checkSyncOutcomes surfaces the most recent scheduled sync result for
// every user with auto sync enabled.
func (c *Checker) checkSyncOutcomes(ctx context.Context) {
	integrations, err := c.store.ListAutoSyncIntegrations(ctx, plexsync.ProviderPlex)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list integrations for health check")
		return
	}

	seen := make(map[string]bool, len(integrations))
	for _, integration := range integrations {
		id := fmt.Sprintf("user-%d", integration.UserID)
		seen[id] = true
		c.health.RegisterItem(CategorySync, id, fmt.Sprintf("Plex sync (user %d)", integration.UserID))

		logs, err := c.store.ListSyncLogsByUser(ctx, integration.UserID, 1)
		if err != nil {
			c.logger.Error().Err(err).Int64("user_id", integration.UserID).Msg("Failed to load sync log for health check")
			continue
		}
		if len(logs) == 0 {
			c.health.ClearStatus(CategorySync, id)
			continue
		}

		last := logs[0]
		switch last.Status {
		case plexsync.StatusError:
			c.health.SetError(CategorySync, id, syncMessage(last.Errors, "last sync failed"))
		case plexsync.StatusPartial:
			c.health.SetWarning(CategorySync, id, syncMessage(last.Errors, "last sync completed with errors"))
		default:
			c.health.ClearStatus(CategorySync, id)
		}
	}

	// Drop items for users that disabled auto sync or disconnected.
	for _, item := range c.health.GetByCategory(CategorySync) {
		if !seen[item.ID] {
			c.health.UnregisterItem(CategorySync, item.ID)
		}
	}
}

func syncMessage(errors sql.NullString, fallback string) string {
	if errors.Valid && errors.String != "" {
		return errors.String
	}
	return fallback
}

// checkDirWritable verifies the directory exists and accepts writes by
// round-tripping a temp file.
func checkDirWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("data directory does not exist: %s", path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", path)
		}
		return fmt.Errorf("cannot access data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory path is not a directory: %s", path)
	}

	tempPath := filepath.Join(path, fmt.Sprintf(".showlog_health_%s", uuid.New().String()[:8]))
	file, err := os.Create(tempPath)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("data directory is read-only: %s", path)
		}
		return fmt.Errorf("cannot write to data directory: %w", err)
	}
	if _, err := file.Write([]byte("health check")); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("cannot write data: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("cannot close test file: %w", err)
	}
	if err := os.Remove(tempPath); err != nil {
		return fmt.Errorf("cannot remove test file: %w", err)
	}

	return nil
}
