package library_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/library"
	"github.com/showlog/showlog/internal/testutil"
)

type fixture struct {
	tdb     *testutil.TestDB
	svc     *library.Service
	userID  int64
	showID  int64
	episode []int64 // episode ids of season 1
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	ctx := context.Background()

	user, err := tdb.Store.CreateUser(ctx, "alpha", "hash")
	require.NoError(t, err)

	show, err := tdb.Store.CreateShow(ctx, store.CreateShowParams{
		TvdbID: 81189,
		Title:  "Breaking Bad",
		Status: "ended",
	})
	require.NoError(t, err)

	season, err := tdb.Store.CreateSeason(ctx, store.CreateSeasonParams{
		ShowID:       show.ID,
		SeasonNumber: 1,
		EpisodeCount: 3,
	})
	require.NoError(t, err)

	var episodeIDs []int64
	for i := int64(1); i <= 3; i++ {
		ep, err := tdb.Store.CreateEpisode(ctx, store.CreateEpisodeParams{
			SeasonID:      season.ID,
			EpisodeNumber: i,
		})
		require.NoError(t, err)
		episodeIDs = append(episodeIDs, ep.ID)
	}

	return &fixture{
		tdb:     tdb,
		svc:     library.NewService(tdb.Store, testutil.NopLogger()),
		userID:  user.ID,
		showID:  show.ID,
		episode: episodeIDs,
	}
}

func TestEnsureMembershipDefaultsToWatching(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)
	assert.Equal(t, library.StatusWatching, entry.Status)
}

func TestEnsureMembershipPreservesExistingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetStatus(ctx, f.userID, f.showID, library.StatusCompleted))
	require.NoError(t, f.svc.SetRating(ctx, f.userID, f.showID, 9))

	// A later sync must not reset the user's own curation.
	entry, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)
	assert.Equal(t, library.StatusCompleted, entry.Status)
	assert.EqualValues(t, 9, entry.Rating.Int64)
}

func TestSetStatusValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetStatus(ctx, f.userID, f.showID, "bingeing"), library.ErrInvalidStatus)
	assert.ErrorIs(t, f.svc.SetStatus(ctx, f.userID, 424242, library.StatusDropped), library.ErrNotInLibrary)
}

func TestSetRatingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetRating(ctx, f.userID, f.showID, 11), library.ErrInvalidRating)
	require.NoError(t, f.svc.SetRating(ctx, f.userID, f.showID, 7))

	// Zero clears the rating.
	require.NoError(t, f.svc.SetRating(ctx, f.userID, f.showID, 0))
	row, err := f.tdb.Store.GetUserShow(ctx, f.userID, f.showID)
	require.NoError(t, err)
	assert.False(t, row.Rating.Valid)
}

func TestEpisodeWatchedToggleAndProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SetEpisodeWatched(ctx, f.userID, f.episode[0], true))
	require.NoError(t, f.svc.SetEpisodeWatched(ctx, f.userID, f.episode[1], true))

	watched, total, err := f.svc.Progress(ctx, f.userID, f.showID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, watched)
	assert.EqualValues(t, 3, total)

	// Manual unwatch clears the timestamp and the count.
	require.NoError(t, f.svc.SetEpisodeWatched(ctx, f.userID, f.episode[1], false))

	watched, _, err = f.svc.Progress(ctx, f.userID, f.showID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, watched)

	row, err := f.tdb.Store.GetUserEpisode(ctx, f.userID, f.episode[1])
	require.NoError(t, err)
	assert.Zero(t, row.Watched)
	assert.False(t, row.WatchedAt.Valid)
}

func TestListIncludesProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetEpisodeWatched(ctx, f.userID, f.episode[0], true))

	entries, err := f.svc.List(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Breaking Bad", entries[0].Show.Title)
	assert.EqualValues(t, 3, entries[0].TotalEpisodes)
	assert.EqualValues(t, 1, entries[0].WatchedEpisodes)
}

func TestRemoveKeepsWatchRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.EnsureMembership(ctx, f.userID, f.showID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetEpisodeWatched(ctx, f.userID, f.episode[0], true))

	require.NoError(t, f.svc.Remove(ctx, f.userID, f.showID))

	_, err = f.tdb.Store.GetUserShow(ctx, f.userID, f.showID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	row, err := f.tdb.Store.GetUserEpisode(ctx, f.userID, f.episode[0])
	require.NoError(t, err)
	assert.EqualValues(t, 1, row.Watched)
}
