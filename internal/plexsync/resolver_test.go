package plexsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/metadata"
	"github.com/showlog/showlog/internal/metadata/mock"
	"github.com/showlog/showlog/internal/plex"
	"github.com/showlog/showlog/internal/testutil"
)

func newResolver(t *testing.T, provider metadata.Provider) (*Resolver, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	cat := catalog.NewService(tdb.Store, provider, testutil.NopLogger())
	return NewResolver(tdb.Store, provider, cat, testutil.NopLogger()), tdb
}

func TestResolvePrefersTvdbGUID(t *testing.T) {
	resolver, _ := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	show, err := resolver.Resolve(ctx, plex.Show{
		RatingKey: "100",
		Title:     "Completely Wrong Title",
		GUIDs:     []string{"imdb://tt0903747", "tvdb://81189", "tmdb://1396"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(81189), show.TvdbID)
	assert.Equal(t, "Breaking Bad", show.Title)
}

func TestResolveFallsBackToTmdbGUID(t *testing.T) {
	resolver, _ := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	show, err := resolver.Resolve(ctx, plex.Show{
		RatingKey: "101",
		Title:     "Game of Thrones",
		GUIDs:     []string{"tmdb://1399"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(121361), show.TvdbID)
}

func TestResolveFallsBackToTitleSearch(t *testing.T) {
	resolver, _ := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	// Legacy agents attach no usable GUIDs.
	show, err := resolver.Resolve(ctx, plex.Show{
		RatingKey: "102",
		Title:     "Stranger Things",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(305288), show.TvdbID)
}

func TestResolveTitleSearchPrefersExactMatch(t *testing.T) {
	provider := &rankedProvider{
		results: []metadata.SeriesResult{
			{TvdbID: 74852, Title: "Avatar: The Last Airbender"},
			{TvdbID: 100, Title: "Avatar"},
		},
	}
	resolver, _ := newResolver(t, provider)

	show, err := resolver.Resolve(context.Background(), plex.Show{Title: "avatar"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), show.TvdbID)
}

func TestResolveUnknownShow(t *testing.T) {
	resolver, _ := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, plex.Show{RatingKey: "103", Title: "Totally Unknown Production"})
	assert.ErrorIs(t, err, ErrShowNotResolvable)

	_, err = resolver.Resolve(ctx, plex.Show{RatingKey: "104"})
	assert.ErrorIs(t, err, ErrShowNotResolvable)
}

func TestResolveReusesExistingShow(t *testing.T) {
	resolver, tdb := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tvdb://362472"}})
	require.NoError(t, err)

	second, err := resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tvdb://362472"}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := tdb.Store.CountShows(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestResolveRepopulatesEmptyShow(t *testing.T) {
	resolver, tdb := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	// An interrupted population leaves the show row without episodes.
	row, err := tdb.Store.CreateShow(ctx, store.CreateShowParams{
		TvdbID: 362472,
		Title:  "Loki",
		Status: "ended",
	})
	require.NoError(t, err)

	resolved, err := resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tvdb://362472"}})
	require.NoError(t, err)
	assert.Equal(t, row.ID, resolved.ID)

	count, err := tdb.Store.CountEpisodesByShow(ctx, row.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
}

func TestResolveRepairsSeasonMissingEpisodes(t *testing.T) {
	resolver, tdb := newResolver(t, mock.NewTVDBClient())
	ctx := context.Background()

	show, err := resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tvdb://362472"}})
	require.NoError(t, err)

	seasons, err := tdb.Store.ListSeasonsByShow(ctx, show.ID)
	require.NoError(t, err)
	require.Len(t, seasons, 2)

	// Simulate a population that was interrupted after season one.
	_, err = tdb.Conn.ExecContext(ctx, "DELETE FROM episodes WHERE season_id = ?", seasons[1].ID)
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tvdb://362472"}})
	require.NoError(t, err)

	count, err := tdb.Store.CountEpisodesBySeason(ctx, seasons[1].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	total, err := tdb.Store.CountEpisodesByShow(ctx, show.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
}

func TestResolveTmdbGUIDReusesPopulatedShow(t *testing.T) {
	provider := &countingProvider{Provider: mock.NewTVDBClient()}
	resolver, tdb := newResolver(t, provider)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tmdb://1399"}})
	require.NoError(t, err)

	second, err := resolver.Resolve(ctx, plex.Show{GUIDs: []string{"tmdb://1399"}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, provider.episodeFetches)

	count, err := tdb.Store.CountShows(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestParseGUIDs(t *testing.T) {
	tvdbID, tmdbID := parseGUIDs([]string{"imdb://tt0944947", "tmdb://1399", "tvdb://121361"})
	assert.EqualValues(t, 121361, tvdbID)
	assert.EqualValues(t, 1399, tmdbID)

	tvdbID, tmdbID = parseGUIDs(nil)
	assert.Zero(t, tvdbID)
	assert.Zero(t, tmdbID)

	tvdbID, _ = parseGUIDs([]string{"tvdb://not-a-number"})
	assert.Zero(t, tvdbID)
}

// countingProvider records how often the episode list is fetched.
type countingProvider struct {
	metadata.Provider
	episodeFetches int
}

func (p *countingProvider) GetEpisodes(ctx context.Context, id int64) ([]metadata.EpisodeResult, error) {
	p.episodeFetches++
	return p.Provider.GetEpisodes(ctx, id)
}

// rankedProvider returns a fixed search ranking where the exact title
// match is not first.
type rankedProvider struct {
	results []metadata.SeriesResult
}

func (p *rankedProvider) Name() string       { return "ranked" }
func (p *rankedProvider) IsConfigured() bool { return true }

func (p *rankedProvider) SearchSeries(ctx context.Context, query string) ([]metadata.SeriesResult, error) {
	return p.results, nil
}

func (p *rankedProvider) GetSeries(ctx context.Context, id int64) (*metadata.SeriesResult, error) {
	for _, res := range p.results {
		if res.TvdbID == id {
			r := res
			return &r, nil
		}
	}
	return nil, errors.New("series not found")
}

func (p *rankedProvider) FindSeriesByRemoteID(ctx context.Context, remoteID string) (*metadata.SeriesResult, error) {
	return nil, errors.New("series not found")
}

func (p *rankedProvider) GetEpisodes(ctx context.Context, id int64) ([]metadata.EpisodeResult, error) {
	return []metadata.EpisodeResult{
		{ID: id*1000 + 1, SeasonNumber: 1, EpisodeNumber: 1, Title: "Pilot"},
	}, nil
}
