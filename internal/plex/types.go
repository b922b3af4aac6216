package plex

import "time"

// Server represents a Plex Media Server.
type Server struct {
	Name            string       `json:"name"`
	ClientID        string       `json:"clientIdentifier"`
	AccessToken     string       `json:"accessToken,omitempty"`
	Connections     []Connection `json:"connections"`
	Owned           bool         `json:"owned"`
	Home            bool         `json:"home"`
	SourceTitle     string       `json:"sourceTitle,omitempty"`
	PublicAddress   string       `json:"publicAddress,omitempty"`
	Product         string       `json:"product,omitempty"`
	ProductVersion  string       `json:"productVersion,omitempty"`
	Platform        string       `json:"platform,omitempty"`
	PlatformVersion string       `json:"platformVersion,omitempty"`
	Provides        string       `json:"provides,omitempty"`
}

// Connection represents a server connection endpoint.
type Connection struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	URI      string `json:"uri"`
	Local    bool   `json:"local"`
	Relay    bool   `json:"relay"`
}

// LibrarySection represents a Plex library section.
type LibrarySection struct {
	Key   int    `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"` // "movie", "show", "artist", etc.
}

// Show represents a TV show in a Plex library, with the external GUIDs the
// new Plex agents attach to it.
type Show struct {
	RatingKey string   `json:"ratingKey"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	GUIDs     []string `json:"guids,omitempty"`
}

// WatchedEpisode is an episode with at least one recorded play.
type WatchedEpisode struct {
	ShowRatingKey string `json:"showRatingKey"`
	ShowTitle     string `json:"showTitle"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title,omitempty"`
	ViewCount     int    `json:"viewCount"`
	LastViewedAt  int64  `json:"lastViewedAt,omitempty"` // unix seconds, 0 if unknown
}

// PINResponse represents the response from creating a PIN.
type PINResponse struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	ExpiresIn int       `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
	AuthToken string    `json:"authToken,omitempty"`
	Trusted   bool      `json:"trusted"`
}

// PINStatus represents the status of a PIN authentication.
type PINStatus struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	AuthToken string    `json:"authToken,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}
