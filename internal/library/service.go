// Package library manages each user's tracked shows and watch progress.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/database/store"
)

var (
	ErrNotInLibrary    = errors.New("show is not in the library")
	ErrEpisodeNotFound = errors.New("episode not found")
	ErrInvalidStatus   = errors.New("invalid tracking status")
	ErrInvalidRating   = errors.New("rating must be between 1 and 10")
)

// Tracking statuses for a library entry.
const (
	StatusWatching  = "watching"
	StatusCompleted = "completed"
	StatusOnHold    = "on_hold"
	StatusDropped   = "dropped"
	StatusPlanned   = "planned"
)

// Entry is a show in a user's library with watch progress.
type Entry struct {
	Show            *catalog.Show `json:"show"`
	Status          string        `json:"status"`
	Rating          int64         `json:"rating,omitempty"`
	TotalEpisodes   int64         `json:"totalEpisodes"`
	WatchedEpisodes int64         `json:"watchedEpisodes"`
	AddedAt         time.Time     `json:"addedAt"`
}

// Service manages user libraries.
type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewService creates a new library service.
func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// EnsureMembership adds a show to the user's library with the default
// watching status. An existing entry keeps its current status and rating.
func (s *Service) EnsureMembership(ctx context.Context, userID, showID int64) (*store.UserShow, error) {
	row, err := s.store.CreateUserShow(ctx, userID, showID, StatusWatching)
	if err != nil {
		return nil, fmt.Errorf("failed to add show to library: %w", err)
	}
	return row, nil
}

// List returns the user's library with per-show progress.
func (s *Service) List(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := s.store.ListLibraryShows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}
	return entries, nil
}

// Add puts a show into the user's library.
func (s *Service) Add(ctx context.Context, userID, showID int64) error {
	_, err := s.EnsureMembership(ctx, userID, showID)
	return err
}

// Remove deletes a show from the user's library. Watch records are kept
// so re-adding the show restores progress.
func (s *Service) Remove(ctx context.Context, userID, showID int64) error {
	return s.store.DeleteUserShow(ctx, userID, showID)
}

// SetStatus changes the tracking status of a library entry.
func (s *Service) SetStatus(ctx context.Context, userID, showID int64, status string) error {
	switch status {
	case StatusWatching, StatusCompleted, StatusOnHold, StatusDropped, StatusPlanned:
	default:
		return ErrInvalidStatus
	}

	if _, err := s.store.GetUserShow(ctx, userID, showID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotInLibrary
		}
		return fmt.Errorf("failed to get library entry: %w", err)
	}

	return s.store.UpdateUserShowStatus(ctx, userID, showID, status)
}

// SetRating sets the user's rating for a show, or clears it when rating
// is zero.
func (s *Service) SetRating(ctx context.Context, userID, showID, rating int64) error {
	if rating < 0 || rating > 10 {
		return ErrInvalidRating
	}

	if _, err := s.store.GetUserShow(ctx, userID, showID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotInLibrary
		}
		return fmt.Errorf("failed to get library entry: %w", err)
	}

	var value sql.NullInt64
	if rating > 0 {
		value = sql.NullInt64{Int64: rating, Valid: true}
	}
	return s.store.UpdateUserShowRating(ctx, userID, showID, value)
}

// SetEpisodeWatched toggles the watched flag on a single episode for
// manual tracking.
func (s *Service) SetEpisodeWatched(ctx context.Context, userID, episodeID int64, watched bool) error {
	var watchedAt sql.NullTime
	if watched {
		watchedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	if err := s.store.SetUserEpisodeWatched(ctx, userID, episodeID, watched, watchedAt); err != nil {
		return fmt.Errorf("failed to update episode: %w", err)
	}
	return nil
}

// Progress returns watched and total episode counts for a show.
func (s *Service) Progress(ctx context.Context, userID, showID int64) (watched, total int64, err error) {
	watched, err = s.store.CountWatchedEpisodes(ctx, userID, showID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count watched episodes: %w", err)
	}
	total, err = s.store.CountEpisodesByShow(ctx, showID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count episodes: %w", err)
	}
	return watched, total, nil
}

func rowToEntry(row *store.LibraryShow) Entry {
	entry := Entry{
		Status:          row.Status,
		Rating:          row.Rating.Int64,
		TotalEpisodes:   row.TotalEpisodes,
		WatchedEpisodes: row.WatchedEpisodes,
	}
	if row.UserShow.CreatedAt.Valid {
		entry.AddedAt = row.UserShow.CreatedAt.Time
	}

	show := row.Show
	entry.Show = &catalog.Show{
		ID:        show.ID,
		TvdbID:    show.TvdbID,
		Title:     show.Title,
		Overview:  show.Overview.String,
		PosterURL: show.PosterURL.String,
		Status:    show.Status,
		Network:   show.Network.String,
		Runtime:   show.Runtime.Int64,
	}
	if show.FirstAired.Valid {
		entry.Show.FirstAired = show.FirstAired.Time.Format("2006-01-02")
	}
	return entry
}
