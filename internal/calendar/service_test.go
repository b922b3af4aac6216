package calendar_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/calendar"
	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/testutil"
)

func TestUpcomingFiltersByWindowAndLibrary(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	ctx := context.Background()

	user, err := tdb.Store.CreateUser(ctx, "alpha", "hash")
	require.NoError(t, err)

	tracked, err := tdb.Store.CreateShow(ctx, store.CreateShowParams{TvdbID: 1, Title: "Tracked", Status: "continuing"})
	require.NoError(t, err)
	untracked, err := tdb.Store.CreateShow(ctx, store.CreateShowParams{TvdbID: 2, Title: "Untracked", Status: "continuing"})
	require.NoError(t, err)

	_, err = tdb.Store.CreateUserShow(ctx, user.ID, tracked.ID, "watching")
	require.NoError(t, err)

	trackedSeason, err := tdb.Store.CreateSeason(ctx, store.CreateSeasonParams{ShowID: tracked.ID, SeasonNumber: 1, EpisodeCount: 3})
	require.NoError(t, err)
	untrackedSeason, err := tdb.Store.CreateSeason(ctx, store.CreateSeasonParams{ShowID: untracked.ID, SeasonNumber: 1, EpisodeCount: 1})
	require.NoError(t, err)

	now := time.Now().UTC()
	airDate := func(days int) sql.NullTime {
		return sql.NullTime{Time: now.AddDate(0, 0, days), Valid: true}
	}

	// Inside the window.
	_, err = tdb.Store.CreateEpisode(ctx, store.CreateEpisodeParams{
		SeasonID: trackedSeason.ID, EpisodeNumber: 1, AirDate: airDate(3),
	})
	require.NoError(t, err)
	// Past episode, excluded.
	_, err = tdb.Store.CreateEpisode(ctx, store.CreateEpisodeParams{
		SeasonID: trackedSeason.ID, EpisodeNumber: 2, AirDate: airDate(-2),
	})
	require.NoError(t, err)
	// Beyond the window, excluded.
	_, err = tdb.Store.CreateEpisode(ctx, store.CreateEpisodeParams{
		SeasonID: trackedSeason.ID, EpisodeNumber: 3, AirDate: airDate(30),
	})
	require.NoError(t, err)
	// Airing soon but not in the user's library.
	_, err = tdb.Store.CreateEpisode(ctx, store.CreateEpisodeParams{
		SeasonID: untrackedSeason.ID, EpisodeNumber: 1, AirDate: airDate(3),
	})
	require.NoError(t, err)

	svc := calendar.NewService(tdb.Store, testutil.NopLogger())

	items, err := svc.Upcoming(ctx, user.ID, 14)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Tracked", items[0].ShowTitle)
	assert.EqualValues(t, 1, items[0].EpisodeNumber)
}

func TestUpcomingEmptyLibrary(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	ctx := context.Background()

	user, err := tdb.Store.CreateUser(ctx, "alpha", "hash")
	require.NoError(t, err)

	svc := calendar.NewService(tdb.Store, testutil.NopLogger())

	items, err := svc.Upcoming(ctx, user.ID, 14)
	require.NoError(t, err)
	assert.Empty(t, items)
}
