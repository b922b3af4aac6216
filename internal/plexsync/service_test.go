package plexsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/crypto"
	"github.com/showlog/showlog/internal/database/store"
	"github.com/showlog/showlog/internal/library"
	"github.com/showlog/showlog/internal/metadata/mock"
	"github.com/showlog/showlog/internal/plex"
	"github.com/showlog/showlog/internal/testutil"
)

// fakePlex serves canned Plex API responses keyed by access token and
// library section.
type fakePlex struct {
	servers             []plex.Server
	sections            []plex.LibrarySection
	shows               map[int][]plex.Show
	watched             map[int][]plex.WatchedEpisode
	librariesErrByToken map[string]error
}

func (f *fakePlex) GetResources(ctx context.Context, token string) ([]plex.Server, error) {
	return f.servers, nil
}

func (f *fakePlex) FindServerURL(ctx context.Context, server plex.Server, token string) (string, error) {
	return "http://plex.local:32400", nil
}

func (f *fakePlex) ListLibraries(ctx context.Context, serverURL, token string) ([]plex.LibrarySection, error) {
	if err := f.librariesErrByToken[token]; err != nil {
		return nil, err
	}
	return f.sections, nil
}

func (f *fakePlex) ListShows(ctx context.Context, serverURL, token string, sectionKey int) ([]plex.Show, error) {
	return f.shows[sectionKey], nil
}

func (f *fakePlex) ListWatchedEpisodes(ctx context.Context, serverURL, token string, sectionKey int) ([]plex.WatchedEpisode, error) {
	return f.watched[sectionKey], nil
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []string
}

func (b *fakeBroadcaster) Broadcast(msgType string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msgType)
	return nil
}

type syncFixture struct {
	tdb     *testutil.TestDB
	svc     *Service
	plex    *fakePlex
	secrets *crypto.SecretStore
	events  *fakeBroadcaster
	userID  int64
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	ctx := context.Background()

	user, err := tdb.Store.CreateUser(ctx, "alpha", "hash")
	require.NoError(t, err)

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	secrets := crypto.NewSecretStore("test-pin", salt)

	provider := mock.NewTVDBClient()
	cat := catalog.NewService(tdb.Store, provider, testutil.NopLogger())
	lib := library.NewService(tdb.Store, testutil.NopLogger())
	resolver := NewResolver(tdb.Store, provider, cat, testutil.NopLogger())
	merger := NewMerger(tdb.Store, testutil.NopLogger())

	fp := &fakePlex{
		shows:               make(map[int][]plex.Show),
		watched:             make(map[int][]plex.WatchedEpisode),
		librariesErrByToken: make(map[string]error),
	}
	events := &fakeBroadcaster{}

	svc := NewService(tdb.Store, fp, resolver, merger, lib, secrets, events, testutil.NopLogger())

	return &syncFixture{
		tdb:     tdb,
		svc:     svc,
		plex:    fp,
		secrets: secrets,
		events:  events,
		userID:  user.ID,
	}
}

// connect stores an enabled integration for the user with the given
// plaintext token encrypted at rest.
func (f *syncFixture) connect(t *testing.T, userID int64, token string) {
	t.Helper()
	encrypted, err := f.secrets.Encrypt(token)
	require.NoError(t, err)
	_, err = f.tdb.Store.UpsertIntegration(context.Background(), store.UpsertIntegrationParams{
		UserID:      userID,
		Provider:    ProviderPlex,
		AccessToken: encrypted,
		ServerURL:   "http://plex.local:32400",
		Enabled:     true,
		AutoSync:    true,
	})
	require.NoError(t, err)
}

func (f *syncFixture) addTVSection(key int, title string) {
	f.plex.sections = append(f.plex.sections, plex.LibrarySection{Key: key, Title: title, Type: "show"})
}

func TestRunSyncImportsWatchHistory(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.addTVSection(1, "TV Shows")
	f.plex.shows[1] = []plex.Show{
		{RatingKey: "bb", Title: "Breaking Bad", GUIDs: []string{"tvdb://81189"}},
	}
	viewed := time.Date(2024, 3, 10, 21, 0, 0, 0, time.UTC).Unix()
	f.plex.watched[1] = []plex.WatchedEpisode{
		{ShowRatingKey: "bb", ShowTitle: "Breaking Bad", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1, LastViewedAt: viewed},
		{ShowRatingKey: "bb", ShowTitle: "Breaking Bad", SeasonNumber: 1, EpisodeNumber: 2, ViewCount: 1, LastViewedAt: viewed},
		{ShowRatingKey: "bb", ShowTitle: "Breaking Bad", SeasonNumber: 2, EpisodeNumber: 1, ViewCount: 3, LastViewedAt: viewed},
	}

	result, err := f.svc.RunSync(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.ShowsSynced)
	assert.Equal(t, 3, result.EpisodesSynced)
	assert.Empty(t, result.Errors)

	show, err := f.tdb.Store.GetShowByTvdbID(ctx, 81189)
	require.NoError(t, err)

	// Catalog is fully populated, not just the watched episodes.
	episodes, err := f.tdb.Store.CountEpisodesByShow(ctx, show.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 62, episodes)

	// The show landed in the user's library with default status.
	entry, err := f.tdb.Store.GetUserShow(ctx, f.userID, show.ID)
	require.NoError(t, err)
	assert.Equal(t, "watching", entry.Status)

	watched, err := f.tdb.Store.CountWatchedEpisodes(ctx, f.userID, show.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, watched)
}

func TestRunSyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.addTVSection(1, "TV Shows")
	f.plex.shows[1] = []plex.Show{
		{RatingKey: "bb", Title: "Breaking Bad", GUIDs: []string{"tvdb://81189"}},
	}
	f.plex.watched[1] = []plex.WatchedEpisode{
		{ShowRatingKey: "bb", ShowTitle: "Breaking Bad", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1, LastViewedAt: time.Now().Unix()},
	}

	first, err := f.svc.RunSync(ctx, f.userID)
	require.NoError(t, err)
	second, err := f.svc.RunSync(ctx, f.userID)
	require.NoError(t, err)

	assert.Equal(t, first.EpisodesSynced, second.EpisodesSynced)

	show, err := f.tdb.Store.GetShowByTvdbID(ctx, 81189)
	require.NoError(t, err)
	watched, err := f.tdb.Store.CountWatchedEpisodes(ctx, f.userID, show.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, watched)
}

func TestRunSyncPartialOnUnresolvableShow(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.addTVSection(1, "TV Shows")
	f.plex.shows[1] = []plex.Show{
		{RatingKey: "bb", Title: "Breaking Bad", GUIDs: []string{"tvdb://81189"}},
		{RatingKey: "zz", Title: "Obscure Local Recording"},
	}
	f.plex.watched[1] = []plex.WatchedEpisode{
		{ShowRatingKey: "bb", ShowTitle: "Breaking Bad", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1},
		{ShowRatingKey: "zz", ShowTitle: "Obscure Local Recording", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1},
	}

	result, err := f.svc.RunSync(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, 1, result.ShowsSynced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Failed to sync Obscure Local Recording")
	assert.Contains(t, result.Errors[0], "could not find show on TheTVDB")
}

func TestSyncAndRecordPartialWhenEveryShowFails(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.addTVSection(1, "TV Shows")
	f.plex.shows[1] = []plex.Show{
		{RatingKey: "zz", Title: "Obscure Local Recording"},
	}
	f.plex.watched[1] = []plex.WatchedEpisode{
		{ShowRatingKey: "zz", ShowTitle: "Obscure Local Recording", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1},
	}

	// The run itself completed, so even with zero shows imported this is
	// a partial outcome, not a failed one.
	result, err := f.svc.SyncAndRecord(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, 0, result.ShowsSynced)
	require.Len(t, result.Errors, 1)

	logs, err := f.svc.History(ctx, f.userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusPartial, logs[0].Status)

	integration, err := f.tdb.Store.GetIntegration(ctx, f.userID, ProviderPlex)
	require.NoError(t, err)
	assert.True(t, integration.LastSyncAt.Valid)
}

func TestRunSyncResolvesShowsRemovedFromLibrary(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.addTVSection(1, "TV Shows")
	// History still references a show that was deleted from the section.
	f.plex.watched[1] = []plex.WatchedEpisode{
		{ShowRatingKey: "gone", ShowTitle: "The Mandalorian", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1},
	}

	result, err := f.svc.RunSync(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.ShowsSynced)

	_, err = f.tdb.Store.GetShowByTvdbID(ctx, 361753)
	assert.NoError(t, err)
}

func TestRunSyncIgnoresMovieSections(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.plex.sections = []plex.LibrarySection{
		{Key: 1, Title: "Movies", Type: "movie"},
		{Key: 2, Title: "Music", Type: "artist"},
	}

	_, err := f.svc.RunSync(ctx, f.userID)
	assert.ErrorIs(t, err, ErrNoLibrariesFound)
}

func TestRunSyncWithoutIntegration(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.svc.RunSync(ctx, f.userID)
	assert.ErrorIs(t, err, ErrIntegrationNotConfigured)
}

func TestRunSyncWithDisabledIntegration(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	encrypted, err := f.secrets.Encrypt("token-1")
	require.NoError(t, err)
	_, err = f.tdb.Store.UpsertIntegration(ctx, store.UpsertIntegrationParams{
		UserID:      f.userID,
		Provider:    ProviderPlex,
		AccessToken: encrypted,
		ServerURL:   "http://plex.local:32400",
		Enabled:     false,
	})
	require.NoError(t, err)

	_, err = f.svc.RunSync(ctx, f.userID)
	assert.ErrorIs(t, err, ErrIntegrationNotConfigured)
}

func TestSyncAndRecordPersistsLog(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.addTVSection(1, "TV Shows")
	f.plex.shows[1] = []plex.Show{
		{RatingKey: "bb", Title: "Breaking Bad", GUIDs: []string{"tvdb://81189"}},
	}
	f.plex.watched[1] = []plex.WatchedEpisode{
		{ShowRatingKey: "bb", ShowTitle: "Breaking Bad", SeasonNumber: 1, EpisodeNumber: 1, ViewCount: 1},
	}

	result, err := f.svc.SyncAndRecord(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)

	logs, err := f.svc.History(ctx, f.userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusSuccess, logs[0].Status)
	assert.EqualValues(t, 1, logs[0].ShowsSynced)
	assert.EqualValues(t, 1, logs[0].EpisodesSynced)
	assert.False(t, logs[0].Errors.Valid)

	integration, err := f.tdb.Store.GetIntegration(ctx, f.userID, ProviderPlex)
	require.NoError(t, err)
	assert.True(t, integration.LastSyncAt.Valid)

	assert.Contains(t, f.events.messages, "sync:completed")
}

func TestSyncAndRecordRecordsFailedRun(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.connect(t, f.userID, "token-1")
	f.plex.librariesErrByToken["token-1"] = errors.New("server unreachable")

	_, err := f.svc.SyncAndRecord(ctx, f.userID)
	require.Error(t, err)

	logs, err := f.svc.History(ctx, f.userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusError, logs[0].Status)
	assert.True(t, logs[0].Errors.Valid)
	assert.Contains(t, logs[0].Errors.String, "server unreachable")

	// A failed run never stamps the last sync time.
	integration, err := f.tdb.Store.GetIntegration(ctx, f.userID, ProviderPlex)
	require.NoError(t, err)
	assert.False(t, integration.LastSyncAt.Valid)
}

func TestSyncAndRecordRecordsNotConfigured(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.svc.SyncAndRecord(ctx, f.userID)
	assert.ErrorIs(t, err, ErrIntegrationNotConfigured)

	logs, err := f.svc.History(ctx, f.userID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, StatusError, logs[0].Status)
	assert.True(t, logs[0].Errors.Valid)
	assert.Contains(t, logs[0].Errors.String, "not configured")
}

func TestSyncAndRecordRejectsConcurrentRuns(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.svc.mu.Lock()
	f.svc.running[f.userID] = true
	f.svc.mu.Unlock()

	_, err := f.svc.SyncAndRecord(ctx, f.userID)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestHistoryClampsLimit(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.tdb.Store.CreateSyncLog(ctx, store.CreateSyncLogParams{
			UserID:   f.userID,
			Provider: ProviderPlex,
			Status:   StatusSuccess,
		})
		require.NoError(t, err)
	}

	logs, err := f.svc.History(ctx, f.userID, -5)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = f.svc.History(ctx, f.userID, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
