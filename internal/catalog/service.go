// Package catalog maintains the normalized show, season and episode
// records shared by all users. Metadata comes from the configured
// provider and is keyed by TVDB id.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/metadata"
)

var (
	ErrShowNotFound = errors.New("show not found")
)

// Show is a catalog show with its seasons.
type Show struct {
	ID         int64    `json:"id"`
	TvdbID     int64    `json:"tvdbId"`
	Title      string   `json:"title"`
	Overview   string   `json:"overview,omitempty"`
	PosterURL  string   `json:"posterUrl,omitempty"`
	Status     string   `json:"status"`
	Genres     []string `json:"genres,omitempty"`
	Network    string   `json:"network,omitempty"`
	Runtime    int64    `json:"runtime,omitempty"`
	FirstAired string   `json:"firstAired,omitempty"`
	Seasons    []Season `json:"seasons,omitempty"`
}

// Season is a catalog season with optional episodes.
type Season struct {
	ID           int64     `json:"id"`
	SeasonNumber int64     `json:"seasonNumber"`
	Title        string    `json:"title,omitempty"`
	EpisodeCount int64     `json:"episodeCount"`
	Episodes     []Episode `json:"episodes,omitempty"`
}

// Episode is a catalog episode.
type Episode struct {
	ID            int64  `json:"id"`
	SeasonNumber  int64  `json:"seasonNumber"`
	EpisodeNumber int64  `json:"episodeNumber"`
	Title         string `json:"title,omitempty"`
	Overview      string `json:"overview,omitempty"`
	AirDate       string `json:"airDate,omitempty"`
	Runtime       int64  `json:"runtime,omitempty"`
}

// Service manages the shared show catalog.
type Service struct {
	store    *store.Store
	provider metadata.Provider
	logger   zerolog.Logger
}

// NewService creates a new catalog service.
func NewService(st *store.Store, provider metadata.Provider, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		provider: provider,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Search queries the metadata provider for series matching the query.
func (s *Service) Search(ctx context.Context, query string) ([]metadata.SeriesResult, error) {
	return s.provider.SearchSeries(ctx, query)
}

// GetShowByTvdbID returns the stored show for a TVDB id, or ErrShowNotFound.
func (s *Service) GetShowByTvdbID(ctx context.Context, tvdbID int64) (*Show, error) {
	row, err := s.store.GetShowByTvdbID(ctx, tvdbID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	return rowToShow(row), nil
}

// GetShowDetail returns a show with its seasons and episodes.
func (s *Service) GetShowDetail(ctx context.Context, showID int64) (*Show, error) {
	row, err := s.store.GetShow(ctx, showID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	show := rowToShow(row)

	seasons, err := s.store.ListSeasonsByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	for _, se := range seasons {
		season := Season{
			ID:           se.ID,
			SeasonNumber: se.SeasonNumber,
			Title:        se.Title.String,
			EpisodeCount: se.EpisodeCount,
		}
		episodes, err := s.store.ListEpisodesBySeason(ctx, se.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list episodes: %w", err)
		}
		for _, ep := range episodes {
			season.Episodes = append(season.Episodes, rowToEpisode(ep, se.SeasonNumber))
		}
		show.Seasons = append(show.Seasons, season)
	}

	return show, nil
}

// EnsureShow guarantees that the show identified by the series result
// exists in the catalog with all its regular seasons and episodes.
// Already-present rows are left untouched, so re-running is idempotent.
func (s *Service) EnsureShow(ctx context.Context, series *metadata.SeriesResult) (*store.Show, error) {
	showRow, err := s.store.CreateShow(ctx, store.CreateShowParams{
		TvdbID:     series.TvdbID,
		Title:      series.Title,
		Overview:   nullString(series.Overview),
		PosterURL:  nullString(series.PosterURL),
		Status:     defaultStatus(series.Status),
		Genres:     nullString(strings.Join(series.Genres, ",")),
		Network:    nullString(series.Network),
		Runtime:    nullInt64(int64(series.Runtime)),
		FirstAired: parseAirDate(series.FirstAired),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create show: %w", err)
	}

	if err := s.populateEpisodes(ctx, showRow, series.TvdbID); err != nil {
		return nil, err
	}

	return showRow, nil
}

// RefreshShow re-fetches episodes for an existing show, picking up newly
// aired entries.
func (s *Service) RefreshShow(ctx context.Context, showID int64) error {
	showRow, err := s.store.GetShow(ctx, showID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowNotFound
		}
		return fmt.Errorf("failed to get show: %w", err)
	}
	return s.populateEpisodes(ctx, showRow, showRow.TvdbID)
}

// populateEpisodes fetches the episode list from the provider and inserts
// any missing seasons and episodes. Specials (season 0) are skipped.
func (s *Service) populateEpisodes(ctx context.Context, showRow *store.Show, tvdbID int64) error {
	episodes, err := s.provider.GetEpisodes(ctx, tvdbID)
	if err != nil {
		return fmt.Errorf("failed to fetch episodes: %w", err)
	}

	// Group by season first so each season row is created once with its
	// final episode count.
	bySeason := make(map[int][]metadata.EpisodeResult)
	for _, ep := range episodes {
		if ep.SeasonNumber < 1 {
			continue
		}
		bySeason[ep.SeasonNumber] = append(bySeason[ep.SeasonNumber], ep)
	}

	for seasonNum, eps := range bySeason {
		seasonRow, err := s.store.CreateSeason(ctx, store.CreateSeasonParams{
			ShowID:       showRow.ID,
			SeasonNumber: int64(seasonNum),
			Title:        nullString(fmt.Sprintf("Season %d", seasonNum)),
			EpisodeCount: int64(len(eps)),
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Int64("show_id", showRow.ID).
				Int("season", seasonNum).
				Msg("Failed to create season, skipping")
			continue
		}

		for _, ep := range eps {
			_, err := s.store.CreateEpisode(ctx, store.CreateEpisodeParams{
				SeasonID:      seasonRow.ID,
				EpisodeNumber: int64(ep.EpisodeNumber),
				TvdbEpisodeID: nullInt64(ep.ID),
				Title:         nullString(ep.Title),
				Overview:      nullString(ep.Overview),
				AirDate:       parseAirDate(ep.AirDate),
				Runtime:       nullInt64(int64(ep.Runtime)),
			})
			if err != nil {
				s.logger.Warn().Err(err).
					Int64("season_id", seasonRow.ID).
					Int("episode", ep.EpisodeNumber).
					Msg("Failed to create episode, skipping")
			}
		}
	}

	s.logger.Debug().
		Int64("show_id", showRow.ID).
		Str("title", showRow.Title).
		Int("episodes", len(episodes)).
		Msg("Catalog populated")

	return nil
}

// AddShowByTvdbID fetches series details and ensures the show is in the
// catalog.
func (s *Service) AddShowByTvdbID(ctx context.Context, tvdbID int64) (*Show, error) {
	series, err := s.provider.GetSeries(ctx, tvdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series: %w", err)
	}

	showRow, err := s.EnsureShow(ctx, series)
	if err != nil {
		return nil, err
	}

	return rowToShow(showRow), nil
}

func rowToShow(row *store.Show) *Show {
	show := &Show{
		ID:        row.ID,
		TvdbID:    row.TvdbID,
		Title:     row.Title,
		Overview:  row.Overview.String,
		PosterURL: row.PosterURL.String,
		Status:    row.Status,
		Network:   row.Network.String,
		Runtime:   row.Runtime.Int64,
	}
	if row.Genres.Valid && row.Genres.String != "" {
		show.Genres = strings.Split(row.Genres.String, ",")
	}
	if row.FirstAired.Valid {
		show.FirstAired = row.FirstAired.Time.Format("2006-01-02")
	}
	return show
}

func rowToEpisode(row *store.Episode, seasonNumber int64) Episode {
	ep := Episode{
		ID:            row.ID,
		SeasonNumber:  seasonNumber,
		EpisodeNumber: row.EpisodeNumber,
		Title:         row.Title.String,
		Overview:      row.Overview.String,
		Runtime:       row.Runtime.Int64,
	}
	if row.AirDate.Valid {
		ep.AirDate = row.AirDate.Time.Format("2006-01-02")
	}
	return ep
}

func defaultStatus(status string) string {
	if status == "" {
		return "continuing"
	}
	return status
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}

func parseAirDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
