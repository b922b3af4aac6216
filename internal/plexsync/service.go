// Package plexsync imports watch history from a user's Plex Media Server
// and merges it into the catalog and the user's library.
package plexsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/crypto"
	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/library"
	"github.com/showlog/showlog/internal/plex"
)

// ProviderPlex is the integration provider key for Plex.
const ProviderPlex = "plex"

// Run statuses recorded in sync logs.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// PlexAPI is the subset of the Plex client the sync engine uses.
type PlexAPI interface {
	GetResources(ctx context.Context, token string) ([]plex.Server, error)
	FindServerURL(ctx context.Context, server plex.Server, token string) (string, error)
	ListLibraries(ctx context.Context, serverURL, token string) ([]plex.LibrarySection, error)
	ListShows(ctx context.Context, serverURL, token string, sectionKey int) ([]plex.Show, error)
	ListWatchedEpisodes(ctx context.Context, serverURL, token string, sectionKey int) ([]plex.WatchedEpisode, error)
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Result summarizes one sync run.
type Result struct {
	Status         string   `json:"status"`
	ShowsSynced    int      `json:"showsSynced"`
	EpisodesSynced int      `json:"episodesSynced"`
	Errors         []string `json:"errors,omitempty"`
	DurationMs     int64    `json:"durationMs"`
}

// Service orchestrates sync runs.
type Service struct {
	store    *store.Store
	plex     PlexAPI
	resolver *Resolver
	merger   *Merger
	library  *library.Service
	secrets  *crypto.SecretStore
	events   Broadcaster
	logger   zerolog.Logger

	mu      sync.Mutex
	running map[int64]bool
}

// NewService creates a new sync service. events may be nil.
func NewService(st *store.Store, plexAPI PlexAPI, resolver *Resolver, merger *Merger, lib *library.Service, secrets *crypto.SecretStore, events Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		plex:     plexAPI,
		resolver: resolver,
		merger:   merger,
		library:  lib,
		secrets:  secrets,
		events:   events,
		logger:   logger.With().Str("component", "plexsync").Logger(),
		running:  make(map[int64]bool),
	}
}

// RunSync performs a full import for one user: fetch watch history from
// every TV library on the connected server, resolve each show, ensure
// library membership and merge watched episodes. A failure on one show
// never aborts the others.
func (s *Service) RunSync(ctx context.Context, userID int64) (*Result, error) {
	integration, err := s.store.GetIntegration(ctx, userID, ProviderPlex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntegrationNotConfigured
		}
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	if integration.Enabled == 0 {
		return nil, ErrIntegrationNotConfigured
	}

	token, err := s.secrets.Decrypt(integration.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	sections, err := s.plex.ListLibraries(ctx, integration.ServerURL, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}

	var tvSections []plex.LibrarySection
	for _, section := range sections {
		if section.Type == "show" {
			tvSections = append(tvSections, section)
		}
	}
	if len(tvSections) == 0 {
		return nil, ErrNoLibrariesFound
	}

	result := &Result{}
	for _, section := range tvSections {
		s.syncSection(ctx, userID, integration.ServerURL, token, section, result)
	}

	// Per-show failures never fail the run; only fatal errors (bad token,
	// unreachable server, no libraries) produce an error status.
	if len(result.Errors) > 0 {
		result.Status = StatusPartial
	} else {
		result.Status = StatusSuccess
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int("shows", result.ShowsSynced).
		Int("episodes", result.EpisodesSynced).
		Int("errors", len(result.Errors)).
		Msg("Sync run finished")

	return result, nil
}

// syncSection imports one TV library section, appending per-show failures
// to result.Errors.
func (s *Service) syncSection(ctx context.Context, userID int64, serverURL, token string, section plex.LibrarySection, result *Result) {
	shows, err := s.plex.ListShows(ctx, serverURL, token, section.Key)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to sync %s: %v", section.Title, err))
		return
	}

	watched, err := s.plex.ListWatchedEpisodes(ctx, serverURL, token, section.Key)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to sync %s: %v", section.Title, err))
		return
	}

	showsByKey := make(map[string]plex.Show, len(shows))
	for _, show := range shows {
		showsByKey[show.RatingKey] = show
	}

	byShow := make(map[string][]plex.WatchedEpisode)
	for _, item := range watched {
		byShow[item.ShowRatingKey] = append(byShow[item.ShowRatingKey], item)
	}

	for ratingKey, items := range byShow {
		plexShow, ok := showsByKey[ratingKey]
		if !ok {
			// History can reference shows removed from the library;
			// fall back to the title carried on the episodes.
			plexShow = plex.Show{RatingKey: ratingKey, Title: items[0].ShowTitle}
		}

		merged, err := s.syncShow(ctx, userID, plexShow, items)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to sync %s: %v", plexShow.Title, err))
			continue
		}

		result.ShowsSynced++
		result.EpisodesSynced += merged
	}
}

func (s *Service) syncShow(ctx context.Context, userID int64, plexShow plex.Show, items []plex.WatchedEpisode) (int, error) {
	showRow, err := s.resolver.Resolve(ctx, plexShow)
	if err != nil {
		return 0, err
	}

	if _, err := s.library.EnsureMembership(ctx, userID, showRow.ID); err != nil {
		return 0, err
	}

	return s.merger.Merge(ctx, userID, showRow, items)
}

// SyncAndRecord runs a sync and persists the outcome as a sync log entry.
// Concurrent runs for the same user are rejected.
func (s *Service) SyncAndRecord(ctx context.Context, userID int64) (*Result, error) {
	s.mu.Lock()
	if s.running[userID] {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running[userID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, userID)
		s.mu.Unlock()
	}()

	start := time.Now()
	result, err := s.RunSync(ctx, userID)
	duration := time.Since(start)

	if err != nil {
		// Fatal errors, configuration errors included, are recorded as a
		// failed run before being surfaced to the caller.
		result = &Result{
			Status: StatusError,
			Errors: []string{err.Error()},
		}
	}
	result.DurationMs = duration.Milliseconds()

	if _, logErr := s.store.CreateSyncLog(ctx, store.CreateSyncLogParams{
		UserID:         userID,
		Provider:       ProviderPlex,
		Status:         result.Status,
		ShowsSynced:    int64(result.ShowsSynced),
		EpisodesSynced: int64(result.EpisodesSynced),
		Errors:         joinErrors(result.Errors),
		DurationMs:     result.DurationMs,
	}); logErr != nil {
		s.logger.Error().Err(logErr).Int64("user_id", userID).Msg("Failed to record sync log")
	}

	if result.Status != StatusError {
		if tsErr := s.store.UpdateIntegrationLastSync(ctx, userID, ProviderPlex, time.Now().UTC()); tsErr != nil {
			s.logger.Warn().Err(tsErr).Int64("user_id", userID).Msg("Failed to stamp last sync time")
		}
	}

	if s.events != nil {
		s.events.Broadcast("sync:completed", map[string]interface{}{
			"userId":         userID,
			"status":         result.Status,
			"showsSynced":    result.ShowsSynced,
			"episodesSynced": result.EpisodesSynced,
		})
	}

	if err != nil {
		return result, err
	}
	return result, nil
}

// History returns a user's most recent sync runs.
func (s *Service) History(ctx context.Context, userID int64, limit int64) ([]*store.SyncLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListSyncLogsByUser(ctx, userID, limit)
}

func joinErrors(errs []string) sql.NullString {
	if len(errs) == 0 {
		return sql.NullString{}
	}
	joined := errs[0]
	for _, e := range errs[1:] {
		joined += "\n" + e
	}
	return sql.NullString{String: joined, Valid: true}
}
