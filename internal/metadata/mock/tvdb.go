// Package mock provides a canned metadata provider for development and
// tests.
package mock

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/showlog/showlog/internal/metadata"
)

// TVDBClient is a mock implementation of the metadata provider.
type TVDBClient struct{}

// NewTVDBClient creates a new mock TVDB client.
func NewTVDBClient() *TVDBClient {
	return &TVDBClient{}
}

func (c *TVDBClient) Name() string {
	return "tvdb-mock"
}

func (c *TVDBClient) IsConfigured() bool {
	return true
}

func (c *TVDBClient) SearchSeries(ctx context.Context, query string) ([]metadata.SeriesResult, error) {
	query = strings.ToLower(query)
	var results []metadata.SeriesResult

	for _, series := range mockSeries {
		if strings.Contains(strings.ToLower(series.Title), query) {
			results = append(results, series)
		}
	}

	return results, nil
}

func (c *TVDBClient) GetSeries(ctx context.Context, id int64) (*metadata.SeriesResult, error) {
	for _, series := range mockSeries {
		if series.TvdbID == id {
			return &series, nil
		}
	}
	return nil, fmt.Errorf("series not found")
}

func (c *TVDBClient) FindSeriesByRemoteID(ctx context.Context, remoteID string) (*metadata.SeriesResult, error) {
	tmdbID, err := strconv.ParseInt(remoteID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("series not found")
	}
	for _, series := range mockSeries {
		if series.TmdbID == tmdbID {
			return &series, nil
		}
	}
	return nil, fmt.Errorf("series not found")
}

func (c *TVDBClient) GetEpisodes(ctx context.Context, id int64) ([]metadata.EpisodeResult, error) {
	for _, s := range mockSeriesEpisodes {
		if s.SeriesID == id {
			return s.Episodes, nil
		}
	}
	return generateEpisodes(id, []int{10, 10}), nil
}

type mockSeriesWithEpisodes struct {
	SeriesID int64
	Episodes []metadata.EpisodeResult
}

// generateEpisodes builds one season per entry in counts, numbering
// episode ids off the series id for stability across calls.
func generateEpisodes(seriesID int64, counts []int) []metadata.EpisodeResult {
	var episodes []metadata.EpisodeResult
	next := seriesID * 1000
	for si, count := range counts {
		for e := 1; e <= count; e++ {
			next++
			episodes = append(episodes, metadata.EpisodeResult{
				ID:            next,
				SeasonNumber:  si + 1,
				EpisodeNumber: e,
				Title:         fmt.Sprintf("Episode %d", e),
				Overview:      "Episode overview placeholder.",
				AirDate:       fmt.Sprintf("20%02d-01-%02d", 10+si, e),
				Runtime:       45,
			})
		}
	}
	return episodes
}

var mockSeriesEpisodes = []mockSeriesWithEpisodes{
	{SeriesID: 121361, Episodes: generateEpisodes(121361, []int{10, 10, 10})}, // Game of Thrones
	{SeriesID: 81189, Episodes: generateEpisodes(81189, []int{7, 13, 13, 13, 16})}, // Breaking Bad
	{SeriesID: 305288, Episodes: generateEpisodes(305288, []int{8, 9, 8, 9})}, // Stranger Things
	{SeriesID: 355567, Episodes: generateEpisodes(355567, []int{8, 8, 8, 8})}, // The Boys
	{SeriesID: 361753, Episodes: generateEpisodes(361753, []int{8, 8, 8})}, // The Mandalorian
	{SeriesID: 362472, Episodes: generateEpisodes(362472, []int{6, 6})}, // Loki
}

var mockSeries = []metadata.SeriesResult{
	{ID: 121361, TvdbID: 121361, TmdbID: 1399, Title: "Game of Thrones", Year: 2011, Overview: "Seven noble families fight for control of the mythical land of Westeros.", PosterURL: "https://artworks.thetvdb.com/banners/posters/121361-4.jpg", ImdbID: "tt0944947", Genres: []string{"Fantasy", "Drama", "Adventure", "Action"}, Network: "HBO", Status: "ended", Runtime: 57, FirstAired: "2011-04-17"},
	{ID: 81189, TvdbID: 81189, TmdbID: 1396, Title: "Breaking Bad", Year: 2008, Overview: "When Walter White, a chemistry teacher, is diagnosed with Stage III cancer, he chooses to enter a dangerous world.", PosterURL: "https://artworks.thetvdb.com/banners/posters/81189-10.jpg", ImdbID: "tt0903747", Genres: []string{"Drama", "Crime", "Thriller"}, Network: "AMC", Status: "ended", Runtime: 48, FirstAired: "2008-01-20"},
	{ID: 305288, TvdbID: 305288, TmdbID: 66732, Title: "Stranger Things", Year: 2016, Overview: "When a young boy vanishes, a small town uncovers a mystery involving secret experiments and supernatural forces.", PosterURL: "https://artworks.thetvdb.com/banners/posters/305288-4.jpg", ImdbID: "tt4574334", Genres: []string{"Science Fiction", "Horror", "Drama"}, Network: "Netflix", Status: "ended", Runtime: 65, FirstAired: "2016-07-15"},
	{ID: 355567, TvdbID: 355567, TmdbID: 76479, Title: "The Boys", Year: 2019, Overview: "A group of vigilantes set out to take down corrupt superheroes.", PosterURL: "https://artworks.thetvdb.com/banners/posters/5c5c402b075cc.jpg", ImdbID: "tt1190634", Genres: []string{"Science Fiction", "Drama", "Action"}, Network: "Prime Video", Status: "continuing", Runtime: 63, FirstAired: "2019-07-26"},
	{ID: 361753, TvdbID: 361753, TmdbID: 82856, Title: "The Mandalorian", Year: 2019, Overview: "A lone gunfighter makes his way through the outer reaches of the galaxy.", PosterURL: "https://artworks.thetvdb.com/banners/v4/series/361753/posters/5d6d8722680d0.jpg", ImdbID: "tt8111088", Genres: []string{"Science Fiction", "Adventure", "Western"}, Network: "Disney+", Status: "continuing", Runtime: 40, FirstAired: "2019-11-12"},
	{ID: 362472, TvdbID: 362472, TmdbID: 84958, Title: "Loki", Year: 2021, Overview: "After stealing the Tesseract, Loki lands before the Time Variance Authority.", PosterURL: "https://artworks.thetvdb.com/banners/v4/series/362472/posters/60fd7ef29e24e.jpg", ImdbID: "tt9140554", Genres: []string{"Science Fiction", "Fantasy", "Drama"}, Network: "Disney+", Status: "ended", Runtime: 50, FirstAired: "2021-06-09"},
}
