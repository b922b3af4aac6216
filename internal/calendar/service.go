// Package calendar surfaces upcoming episodes for shows in a user's
// library.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/database/store"
)

// Item is an upcoming episode on the calendar.
type Item struct {
	EpisodeID     int64  `json:"episodeId"`
	ShowID        int64  `json:"showId"`
	ShowTitle     string `json:"showTitle"`
	PosterURL     string `json:"posterUrl,omitempty"`
	SeasonNumber  int64  `json:"seasonNumber"`
	EpisodeNumber int64  `json:"episodeNumber"`
	Title         string `json:"title,omitempty"`
	AirDate       string `json:"airDate"`
}

// Service builds calendar views.
type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewService creates a new calendar service.
func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "calendar").Logger(),
	}
}

// Upcoming returns episodes airing within the next days for shows in the
// user's library.
func (s *Service) Upcoming(ctx context.Context, userID int64, days int) ([]Item, error) {
	if days <= 0 || days > 90 {
		days = 14
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, days)

	rows, err := s.store.ListUpcomingEpisodesForUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming episodes: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item := Item{
			EpisodeID:     row.Episode.ID,
			ShowID:        row.ShowID,
			ShowTitle:     row.ShowTitle,
			PosterURL:     row.PosterURL.String,
			SeasonNumber:  row.SeasonNumber,
			EpisodeNumber: row.Episode.EpisodeNumber,
			Title:         row.Episode.Title.String,
		}
		if row.Episode.AirDate.Valid {
			item.AirDate = row.Episode.AirDate.Time.Format("2006-01-02")
		}
		items = append(items, item)
	}
	return items, nil
}
