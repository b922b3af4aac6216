package main

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/showlog/showlog/internal/api"
	"github.com/showlog/showlog/internal/auth"
	"github.com/showlog/showlog/internal/calendar"
	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/config"
	"github.com/showlog/showlog/internal/crypto"
	"github.com/showlog/showlog/internal/database"
	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/health"
	"github.com/showlog/showlog/internal/library"
	"github.com/showlog/showlog/internal/logger"
	"github.com/showlog/showlog/internal/metadata"
	"github.com/showlog/showlog/internal/metadata/mock"
	"github.com/showlog/showlog/internal/metadata/tvdb"
	"github.com/showlog/showlog/internal/plex"
	"github.com/showlog/showlog/internal/plexsync"
	"github.com/showlog/showlog/internal/scheduler"
	"github.com/showlog/showlog/internal/startup"
	"github.com/showlog/showlog/internal/websocket"
)

const encryptionSaltKey = "encryption_salt"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().Str("version", config.Version).Msg("Starting ShowLog")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	st := store.New(db.Conn())

	secrets, err := buildSecretStore(st, cfg.Auth.EncryptionPIN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize secret store")
	}
	if cfg.Auth.EncryptionPIN == "" {
		log.Warn().Msg("auth.encryption_pin is not set, stored tokens use a weak key")
	}

	authService, err := auth.NewService(st, cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}

	var provider metadata.Provider
	var tvdbClient *tvdb.Client
	if cfg.TVDB.APIKey != "" {
		tvdbClient = tvdb.NewClient(cfg.TVDB, log.Logger)
		provider = tvdbClient
	} else {
		log.Warn().Msg("tvdb.api_key is not set, using canned metadata")
		provider = mock.NewTVDBClient()
	}

	hub := websocket.NewHub()
	go hub.Run()

	healthService := health.NewService(log.Logger)
	healthService.SetBroadcaster(hub)

	catalogService := catalog.NewService(st, provider, log.Logger)
	libraryService := library.NewService(st, log.Logger)
	calendarService := calendar.NewService(st, log.Logger)

	plexClient := plex.NewClient(&http.Client{Timeout: 30 * time.Second}, log.Logger, config.Version)
	resolver := plexsync.NewResolver(st, provider, catalogService, log.Logger)
	merger := plexsync.NewMerger(st, log.Logger)
	syncService := plexsync.NewService(st, plexClient, resolver, merger, libraryService, secrets, hub, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	driver := plexsync.NewDriver(syncService, sched, cfg.Sync, log.Logger)
	if err := driver.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sync driver")
	}

	checker := health.NewChecker(healthService, db.Conn(), st, provider, filepath.Dir(cfg.Database.Path), log.Logger)
	err = sched.RegisterTask(scheduler.TaskConfig{
		ID:          "health-check",
		Name:        "Health check",
		Description: "Verifies the database, data directory, metadata provider and sync pipelines",
		Cron:        "*/15 * * * *",
		Func:        checker.Run,
		RunOnStart:  true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register health check task")
	}

	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Probe TheTVDB in the background so a slow network never blocks
	// startup; a dead provider surfaces in health instead.
	if tvdbClient != nil {
		go func() {
			probe := func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return tvdbClient.Verify(ctx)
			}
			if err := startup.WithRetry(context.Background(), "tvdb authentication", startup.DefaultRetryConfig(), probe, log.Logger); err != nil {
				healthService.SetError(health.CategoryMetadata, tvdbClient.Name(), fmt.Sprintf("TheTVDB unreachable: %v", err))
			}
		}()
	}

	server := api.NewServer(api.Services{
		Auth:     authService,
		Catalog:  catalogService,
		Library:  libraryService,
		Calendar: calendarService,
		Sync:     syncService,
		Driver:   driver,
		Pins:     plexClient,
		Health:   healthService,
	}, hub, cfg, log.Logger)

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}
}

// buildSecretStore loads or creates the persistent key derivation salt and
// derives the token encryption key from the configured passphrase.
func buildSecretStore(st *store.Store, passphrase string) (*crypto.SecretStore, error) {
	ctx := context.Background()

	var salt []byte
	encoded, err := st.GetSetting(ctx, encryptionSaltKey)
	switch {
	case err == nil:
		salt, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("stored salt is corrupt: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		salt, err = crypto.GenerateSalt()
		if err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := st.SetSetting(ctx, encryptionSaltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
			return nil, fmt.Errorf("failed to persist salt: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load salt: %w", err)
	}

	return crypto.NewSecretStore(passphrase, salt), nil
}
