package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/metadata"
	"github.com/showlog/showlog/internal/metadata/mock"
	"github.com/showlog/showlog/internal/testutil"
)

func newService(t *testing.T) (*catalog.Service, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	svc := catalog.NewService(tdb.Store, mock.NewTVDBClient(), testutil.NopLogger())
	return svc, tdb
}

func TestAddShowByTvdbIDPopulatesAllSeasons(t *testing.T) {
	svc, tdb := newService(t)
	defer tdb.Close()

	ctx := context.Background()

	// Breaking Bad: 5 seasons, 62 episodes in the canned data.
	show, err := svc.AddShowByTvdbID(ctx, 81189)
	require.NoError(t, err)
	assert.Equal(t, "Breaking Bad", show.Title)
	assert.Equal(t, int64(81189), show.TvdbID)

	detail, err := svc.GetShowDetail(ctx, show.ID)
	require.NoError(t, err)
	require.Len(t, detail.Seasons, 5)

	total := 0
	for _, season := range detail.Seasons {
		total += len(season.Episodes)
		assert.EqualValues(t, len(season.Episodes), season.EpisodeCount)
	}
	assert.Equal(t, 62, total)
}

func TestEnsureShowIsIdempotent(t *testing.T) {
	svc, tdb := newService(t)
	defer tdb.Close()

	ctx := context.Background()

	series := &metadata.SeriesResult{TvdbID: 362472, Title: "Loki", Status: "ended"}

	first, err := svc.EnsureShow(ctx, series)
	require.NoError(t, err)

	second, err := svc.EnsureShow(ctx, series)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := tdb.Store.CountShows(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	episodes, err := tdb.Store.CountEpisodesByShow(ctx, first.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 12, episodes)
}

func TestEnsureShowSkipsSpecials(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	provider := &specialsProvider{}
	svc := catalog.NewService(tdb.Store, provider, testutil.NopLogger())

	ctx := context.Background()

	show, err := svc.EnsureShow(ctx, &metadata.SeriesResult{TvdbID: 555, Title: "Specials Heavy"})
	require.NoError(t, err)

	seasons, err := tdb.Store.ListSeasonsByShow(ctx, show.ID)
	require.NoError(t, err)
	require.Len(t, seasons, 1)
	assert.EqualValues(t, 1, seasons[0].SeasonNumber)
}

func TestGetShowDetailNotFound(t *testing.T) {
	svc, tdb := newService(t)
	defer tdb.Close()

	_, err := svc.GetShowDetail(context.Background(), 99999)
	assert.ErrorIs(t, err, catalog.ErrShowNotFound)
}

// specialsProvider reports one special and one regular episode.
type specialsProvider struct{}

func (p *specialsProvider) Name() string       { return "specials" }
func (p *specialsProvider) IsConfigured() bool { return true }

func (p *specialsProvider) SearchSeries(ctx context.Context, query string) ([]metadata.SeriesResult, error) {
	return nil, nil
}

func (p *specialsProvider) GetSeries(ctx context.Context, id int64) (*metadata.SeriesResult, error) {
	return &metadata.SeriesResult{TvdbID: id, Title: "Specials Heavy"}, nil
}

func (p *specialsProvider) FindSeriesByRemoteID(ctx context.Context, remoteID string) (*metadata.SeriesResult, error) {
	return nil, errors.New("not supported")
}

func (p *specialsProvider) GetEpisodes(ctx context.Context, id int64) ([]metadata.EpisodeResult, error) {
	return []metadata.EpisodeResult{
		{ID: 1, SeasonNumber: 0, EpisodeNumber: 1, Title: "Behind the Scenes"},
		{ID: 2, SeasonNumber: 1, EpisodeNumber: 1, Title: "Pilot"},
	}, nil
}
