package metadata

import "context"

// Provider defines the interface for metadata providers.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// IsConfigured returns true if the provider has required configuration.
	IsConfigured() bool

	// SearchSeries searches for TV series by title.
	SearchSeries(ctx context.Context, query string) ([]SeriesResult, error)

	// GetSeries gets series details by provider ID.
	GetSeries(ctx context.Context, id int64) (*SeriesResult, error)

	// FindSeriesByRemoteID looks up a series by an external ID, such as
	// a TMDB id carried in a Plex GUID.
	FindSeriesByRemoteID(ctx context.Context, remoteID string) (*SeriesResult, error)

	// GetEpisodes returns all episodes of a series in the default season
	// order, including specials.
	GetEpisodes(ctx context.Context, id int64) ([]EpisodeResult, error)
}

// SeriesResult represents a TV series from a metadata provider.
type SeriesResult struct {
	ID          int64    `json:"id"`
	TvdbID      int64    `json:"tvdbId"`
	TmdbID      int64    `json:"tmdbId,omitempty"`
	ImdbID      string   `json:"imdbId,omitempty"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Overview    string   `json:"overview"`
	PosterURL   string   `json:"posterUrl,omitempty"`
	BackdropURL string   `json:"backdropUrl,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Network     string   `json:"network,omitempty"`
	Status      string   `json:"status,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`
	FirstAired  string   `json:"firstAired,omitempty"`
}

// EpisodeResult represents a TV episode from a metadata provider.
type EpisodeResult struct {
	ID            int64  `json:"id"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	Overview      string `json:"overview,omitempty"`
	AirDate       string `json:"airDate,omitempty"`
	Runtime       int    `json:"runtime,omitempty"`
}
