package plexsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/plex"
)

// Merger folds watched episodes reported by Plex into a user's watch
// records.
type Merger struct {
	store  *store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewMerger creates a new merger.
func NewMerger(st *store.Store, logger zerolog.Logger) *Merger {
	return &Merger{
		store:  st,
		logger: logger.With().Str("component", "plexsync-merger").Logger(),
		now:    time.Now,
	}
}

// Merge records the reported episodes as watched for the user. Episodes
// that do not exist in the catalog, including specials, are skipped.
// Marking is idempotent and never flips an episode back to unwatched.
// Returns the number of episodes actually merged.
func (m *Merger) Merge(ctx context.Context, userID int64, show *store.Show, items []plex.WatchedEpisode) (int, error) {
	merged := 0
	for _, item := range items {
		if item.SeasonNumber < 1 || item.EpisodeNumber < 1 {
			continue
		}

		episode, err := m.store.GetEpisodeByNumber(ctx, show.ID, int64(item.SeasonNumber), int64(item.EpisodeNumber))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				m.logger.Debug().
					Str("show", show.Title).
					Int("season", item.SeasonNumber).
					Int("episode", item.EpisodeNumber).
					Msg("Episode not in catalog, skipping")
				continue
			}
			return merged, fmt.Errorf("failed to look up episode: %w", err)
		}

		watchedAt := m.now().UTC()
		if item.LastViewedAt > 0 {
			watchedAt = time.Unix(item.LastViewedAt, 0).UTC()
		}

		if err := m.store.UpsertUserEpisodeWatched(ctx, userID, episode.ID, watchedAt); err != nil {
			return merged, fmt.Errorf("failed to record watched episode: %w", err)
		}
		merged++
	}

	return merged, nil
}
