// Package store is the hand-written query layer over the SQLite schema.
// Row structs mirror table columns one-to-one; services convert them to
// their own domain types.
package store

import (
	"database/sql"
)

// Store provides typed access to the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store over the given connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// User is a row in the users table.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    sql.NullTime
}

// Show is a row in the shows table.
type Show struct {
	ID         int64
	TvdbID     int64
	Title      string
	Overview   sql.NullString
	PosterURL  sql.NullString
	Status     string
	Genres     sql.NullString
	Network    sql.NullString
	Runtime    sql.NullInt64
	FirstAired sql.NullTime
	CreatedAt  sql.NullTime
	UpdatedAt  sql.NullTime
}

// Season is a row in the seasons table.
type Season struct {
	ID           int64
	ShowID       int64
	SeasonNumber int64
	TvdbSeasonID sql.NullInt64
	Title        sql.NullString
	Overview     sql.NullString
	EpisodeCount int64
}

// Episode is a row in the episodes table.
type Episode struct {
	ID            int64
	SeasonID      int64
	EpisodeNumber int64
	TvdbEpisodeID sql.NullInt64
	Title         sql.NullString
	Overview      sql.NullString
	AirDate       sql.NullTime
	Runtime       sql.NullInt64
}

// UserShow is a row in the user_shows table.
type UserShow struct {
	ID        int64
	UserID    int64
	ShowID    int64
	Status    string
	Rating    sql.NullInt64
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

// UserEpisode is a row in the user_episodes table.
type UserEpisode struct {
	ID        int64
	UserID    int64
	EpisodeID int64
	Watched   int64
	WatchedAt sql.NullTime
}

// SyncLog is a row in the sync_logs table.
type SyncLog struct {
	ID             int64
	UserID         int64
	Provider       string
	Status         string
	ShowsSynced    int64
	EpisodesSynced int64
	Errors         sql.NullString
	DurationMs     int64
	CreatedAt      sql.NullTime
}

// Integration is a row in the integrations table.
type Integration struct {
	ID          int64
	UserID      int64
	Provider    string
	AccessToken string
	ServerURL   string
	Enabled     int64
	AutoSync    int64
	LastSyncAt  sql.NullTime
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}
