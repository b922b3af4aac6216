package plexsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/config"
	"github.com/showlog/showlog/internal/scheduler"
)

// Driver states.
const (
	DriverUninitialized = "uninitialized"
	DriverInitialized   = "initialized"
	DriverDisabled      = "disabled"
)

// syncTaskID identifies the daily sync task in the scheduler.
const syncTaskID = "plex-sync"

// Driver wires scheduled sync runs: a daily task walks every user with
// auto sync enabled and runs them sequentially with a pacing delay.
type Driver struct {
	service   *Service
	scheduler *scheduler.Scheduler
	cfg       config.SyncConfig
	logger    zerolog.Logger

	mu    sync.Mutex
	state string

	// sleep is swapped in tests to skip the pacing delay.
	sleep func(time.Duration)
}

// NewDriver creates a new sync driver.
func NewDriver(service *Service, sched *scheduler.Scheduler, cfg config.SyncConfig, logger zerolog.Logger) *Driver {
	return &Driver{
		service:   service,
		scheduler: sched,
		cfg:       cfg,
		logger:    logger.With().Str("component", "plexsync-driver").Logger(),
		state:     DriverUninitialized,
		sleep:     time.Sleep,
	}
}

// State returns the driver state.
func (d *Driver) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Initialize registers the daily task. With sync disabled in config the
// driver settles in the disabled state and registers nothing. Calling
// Initialize twice is an error.
func (d *Driver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != DriverUninitialized {
		return fmt.Errorf("sync driver already initialized (state %s)", d.state)
	}

	if !d.cfg.Enabled {
		d.state = DriverDisabled
		d.logger.Info().Msg("Scheduled sync disabled")
		return nil
	}

	cron, err := dailyAtToCron(d.cfg.DailyAt)
	if err != nil {
		return err
	}

	err = d.scheduler.RegisterTask(scheduler.TaskConfig{
		ID:          syncTaskID,
		Name:        "Plex watch history sync",
		Description: "Imports Plex watch history for every user with auto sync enabled",
		Cron:        cron,
		Func:        d.RunAll,
		RunOnStart:  d.cfg.RunOnStart,
	})
	if err != nil {
		return fmt.Errorf("failed to register sync task: %w", err)
	}

	d.state = DriverInitialized
	d.logger.Info().Str("daily_at", d.cfg.DailyAt).Msg("Scheduled sync initialized")
	return nil
}

// RunAll syncs every user with an enabled auto-sync integration, in user
// id order. A failing user never blocks the rest, and users are paced
// apart to avoid hammering Plex servers.
func (d *Driver) RunAll(ctx context.Context) error {
	integrations, err := d.service.store.ListAutoSyncIntegrations(ctx, ProviderPlex)
	if err != nil {
		return fmt.Errorf("failed to list integrations: %w", err)
	}

	d.logger.Info().Int("users", len(integrations)).Msg("Starting scheduled sync")

	var failed int
	for i, integration := range integrations {
		if i > 0 && d.cfg.UserDelaySeconds > 0 {
			d.sleep(time.Duration(d.cfg.UserDelaySeconds) * time.Second)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := d.service.SyncAndRecord(ctx, integration.UserID)
		if err != nil && !errors.Is(err, ErrSyncInProgress) {
			failed++
			d.logger.Error().Err(err).Int64("user_id", integration.UserID).Msg("Scheduled sync failed for user")
			continue
		}
		if result != nil {
			d.logger.Info().
				Int64("user_id", integration.UserID).
				Str("status", result.Status).
				Int("episodes", result.EpisodesSynced).
				Msg("Scheduled sync finished for user")
		}
	}

	if failed > 0 {
		return fmt.Errorf("sync failed for %d of %d users", failed, len(integrations))
	}
	return nil
}

// TriggerAll manually starts a full scheduled run.
func (d *Driver) TriggerAll() error {
	d.mu.Lock()
	state := d.state
	d.mu.Unlock()

	if state != DriverInitialized {
		return fmt.Errorf("sync driver is %s", state)
	}
	return d.scheduler.RunNow(syncTaskID)
}

// dailyAtToCron converts an "HH:MM" wall clock time into a cron
// expression.
func dailyAtToCron(dailyAt string) (string, error) {
	parts := strings.SplitN(dailyAt, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid daily_at time %q, expected HH:MM", dailyAt)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid daily_at hour in %q", dailyAt)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid daily_at minute in %q", dailyAt)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
