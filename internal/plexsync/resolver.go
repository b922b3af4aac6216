package plexsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/metadata"
	"github.com/showlog/showlog/internal/plex"
)

// Resolver matches shows reported by Plex to catalog shows keyed by TVDB
// id, creating catalog entries on first sight.
type Resolver struct {
	store    *store.Store
	provider metadata.Provider
	catalog  *catalog.Service
	logger   zerolog.Logger
}

// NewResolver creates a new resolver.
func NewResolver(st *store.Store, provider metadata.Provider, cat *catalog.Service, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:    st,
		provider: provider,
		catalog:  cat,
		logger:   logger.With().Str("component", "plexsync-resolver").Logger(),
	}
}

// Resolve maps a Plex show to a catalog show. Identity is established in
// order of reliability: a tvdb GUID, then a tmdb GUID via remote id
// lookup, then a title search preferring an exact case-insensitive match.
// The returned show is guaranteed to have its episodes populated.
func (r *Resolver) Resolve(ctx context.Context, show plex.Show) (*store.Show, error) {
	tvdbID, tmdbID := parseGUIDs(show.GUIDs)

	if tvdbID > 0 {
		return r.resolveByTvdbID(ctx, tvdbID)
	}

	if tmdbID > 0 {
		series, err := r.provider.FindSeriesByRemoteID(ctx, strconv.FormatInt(tmdbID, 10))
		if err == nil && series.TvdbID > 0 {
			return r.resolveByTvdbID(ctx, series.TvdbID)
		}
		r.logger.Debug().
			Int64("tmdb_id", tmdbID).
			Str("title", show.Title).
			Msg("Remote id lookup failed, falling back to title search")
	}

	return r.resolveByTitle(ctx, show.Title)
}

func (r *Resolver) resolveByTvdbID(ctx context.Context, tvdbID int64) (*store.Show, error) {
	row, err := r.store.GetShowByTvdbID(ctx, tvdbID)
	if err == nil {
		return r.ensurePopulated(ctx, row)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up show: %w", err)
	}

	series, err := r.provider.GetSeries(ctx, tvdbID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShowNotResolvable, err)
	}
	return r.resolveSeries(ctx, series)
}

func (r *Resolver) resolveSeries(ctx context.Context, series *metadata.SeriesResult) (*store.Show, error) {
	row, err := r.catalog.EnsureShow(ctx, series)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *Resolver) resolveByTitle(ctx context.Context, title string) (*store.Show, error) {
	if title == "" {
		return nil, ErrShowNotResolvable
	}

	results, err := r.provider.SearchSeries(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShowNotResolvable, err)
	}
	if len(results) == 0 {
		return nil, ErrShowNotResolvable
	}

	// Prefer an exact case-insensitive title match over search ranking.
	chosen := results[0]
	for _, res := range results {
		if strings.EqualFold(res.Title, title) {
			chosen = res
			break
		}
	}
	if chosen.TvdbID == 0 {
		return nil, ErrShowNotResolvable
	}

	return r.resolveByTvdbID(ctx, chosen.TvdbID)
}

// ensurePopulated re-fetches episodes for shows that exist in the catalog
// with no seasons or with a season missing its episodes, which happens
// when a previous population was interrupted. The refresh only inserts
// missing rows, so a repair never duplicates what is already there.
func (r *Resolver) ensurePopulated(ctx context.Context, row *store.Show) (*store.Show, error) {
	seasons, err := r.store.ListSeasonsByShow(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	needsRefresh := len(seasons) == 0
	for _, season := range seasons {
		count, err := r.store.CountEpisodesBySeason(ctx, season.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count episodes: %w", err)
		}
		if count == 0 {
			needsRefresh = true
			break
		}
	}
	if !needsRefresh {
		return row, nil
	}

	if err := r.catalog.RefreshShow(ctx, row.ID); err != nil {
		return nil, err
	}
	return row, nil
}

// parseGUIDs extracts TVDB and TMDB ids from Plex agent GUIDs of the form
// tvdb://121361 and tmdb://1399.
func parseGUIDs(guids []string) (tvdbID, tmdbID int64) {
	for _, guid := range guids {
		if id, ok := strings.CutPrefix(guid, "tvdb://"); ok && tvdbID == 0 {
			tvdbID, _ = strconv.ParseInt(id, 10, 64)
		}
		if id, ok := strings.CutPrefix(guid, "tmdb://"); ok && tmdbID == 0 {
			tmdbID, _ = strconv.ParseInt(id, 10, 64)
		}
	}
	return tvdbID, tmdbID
}
