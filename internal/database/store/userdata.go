package store

import (
	"context"
	"database/sql"
	"time"
)

const userShowColumns = `id, user_id, show_id, status, rating, created_at, updated_at`

func scanUserShow(row interface{ Scan(...any) error }) (*UserShow, error) {
	var us UserShow
	err := row.Scan(&us.ID, &us.UserID, &us.ShowID, &us.Status, &us.Rating, &us.CreatedAt, &us.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// GetUserShow returns the library entry for a user and show.
func (s *Store) GetUserShow(ctx context.Context, userID, showID int64) (*UserShow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userShowColumns+` FROM user_shows
		WHERE user_id = ? AND show_id = ?`, userID, showID)
	return scanUserShow(row)
}

// CreateUserShow adds a show to a user's library. An existing entry for the
// same pair is left untouched and returned as-is.
func (s *Store) CreateUserShow(ctx context.Context, userID, showID int64, status string) (*UserShow, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_shows (user_id, show_id, status)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, show_id) DO NOTHING`,
		userID, showID, status)
	if err != nil {
		return nil, err
	}
	return s.GetUserShow(ctx, userID, showID)
}

// UpdateUserShowStatus changes the tracking status of a library entry.
func (s *Store) UpdateUserShowStatus(ctx context.Context, userID, showID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_shows SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND show_id = ?`,
		status, userID, showID)
	return err
}

// UpdateUserShowRating sets or clears the user's rating for a show.
func (s *Store) UpdateUserShowRating(ctx context.Context, userID, showID int64, rating sql.NullInt64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_shows SET rating = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND show_id = ?`,
		rating, userID, showID)
	return err
}

// DeleteUserShow removes a show from a user's library.
func (s *Store) DeleteUserShow(ctx context.Context, userID, showID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_shows WHERE user_id = ? AND show_id = ?`, userID, showID)
	return err
}

// LibraryShow is a user's library entry joined with the show and the user's
// watch progress.
type LibraryShow struct {
	UserShow
	Show            Show
	TotalEpisodes   int64
	WatchedEpisodes int64
}

// ListLibraryShows returns the user's library with per-show progress.
func (s *Store) ListLibraryShows(ctx context.Context, userID int64) ([]*LibraryShow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT us.id, us.user_id, us.show_id, us.status, us.rating, us.created_at, us.updated_at,
		       sh.id, sh.tvdb_id, sh.title, sh.overview, sh.poster_url, sh.status, sh.genres,
		       sh.network, sh.runtime, sh.first_aired, sh.created_at, sh.updated_at,
		       (SELECT COUNT(*) FROM episodes e
		        JOIN seasons se ON se.id = e.season_id
		        WHERE se.show_id = sh.id) AS total_episodes,
		       (SELECT COUNT(*) FROM user_episodes ue
		        JOIN episodes e ON e.id = ue.episode_id
		        JOIN seasons se ON se.id = e.season_id
		        WHERE ue.user_id = us.user_id AND ue.watched = 1 AND se.show_id = sh.id) AS watched_episodes
		FROM user_shows us
		JOIN shows sh ON sh.id = us.show_id
		WHERE us.user_id = ?
		ORDER BY sh.title`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LibraryShow
	for rows.Next() {
		var ls LibraryShow
		err := rows.Scan(&ls.UserShow.ID, &ls.UserShow.UserID, &ls.UserShow.ShowID,
			&ls.UserShow.Status, &ls.UserShow.Rating, &ls.UserShow.CreatedAt, &ls.UserShow.UpdatedAt,
			&ls.Show.ID, &ls.Show.TvdbID, &ls.Show.Title, &ls.Show.Overview, &ls.Show.PosterURL,
			&ls.Show.Status, &ls.Show.Genres, &ls.Show.Network, &ls.Show.Runtime,
			&ls.Show.FirstAired, &ls.Show.CreatedAt, &ls.Show.UpdatedAt,
			&ls.TotalEpisodes, &ls.WatchedEpisodes)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &ls)
	}
	return entries, rows.Err()
}

// GetUserEpisode returns the watch record for a user and episode.
func (s *Store) GetUserEpisode(ctx context.Context, userID, episodeID int64) (*UserEpisode, error) {
	var ue UserEpisode
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, episode_id, watched, watched_at FROM user_episodes
		WHERE user_id = ? AND episode_id = ?`, userID, episodeID).
		Scan(&ue.ID, &ue.UserID, &ue.EpisodeID, &ue.Watched, &ue.WatchedAt)
	if err != nil {
		return nil, err
	}
	return &ue, nil
}

// UpsertUserEpisodeWatched records an episode as watched, keeping the
// earliest known watch time when a record already exists.
func (s *Store) UpsertUserEpisodeWatched(ctx context.Context, userID, episodeID int64, watchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_episodes (user_id, episode_id, watched, watched_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, episode_id) DO UPDATE SET
			watched = 1,
			watched_at = CASE
				WHEN user_episodes.watched_at IS NULL OR user_episodes.watched_at > excluded.watched_at
				THEN excluded.watched_at
				ELSE user_episodes.watched_at
			END`,
		userID, episodeID, watchedAt)
	return err
}

// SetUserEpisodeWatched toggles an episode's watched flag for manual
// tracking. Marking unwatched clears the timestamp.
func (s *Store) SetUserEpisodeWatched(ctx context.Context, userID, episodeID int64, watched bool, watchedAt sql.NullTime) error {
	w := int64(0)
	if watched {
		w = 1
	} else {
		watchedAt = sql.NullTime{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_episodes (user_id, episode_id, watched, watched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, episode_id) DO UPDATE SET
			watched = excluded.watched,
			watched_at = excluded.watched_at`,
		userID, episodeID, w, watchedAt)
	return err
}

// CountWatchedEpisodes returns how many episodes of a show the user has
// marked watched.
func (s *Store) CountWatchedEpisodes(ctx context.Context, userID, showID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_episodes ue
		JOIN episodes e ON e.id = ue.episode_id
		JOIN seasons se ON se.id = e.season_id
		WHERE ue.user_id = ? AND ue.watched = 1 AND se.show_id = ?`,
		userID, showID).Scan(&n)
	return n, err
}

// ListWatchedEpisodeIDs returns the ids of episodes the user has watched
// for a show, ordered by season and episode number.
func (s *Store) ListWatchedEpisodeIDs(ctx context.Context, userID, showID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id FROM user_episodes ue
		JOIN episodes e ON e.id = ue.episode_id
		JOIN seasons se ON se.id = e.season_id
		WHERE ue.user_id = ? AND ue.watched = 1 AND se.show_id = ?
		ORDER BY se.season_number, e.episode_number`,
		userID, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
