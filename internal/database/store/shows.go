package store

import (
	"context"
	"database/sql"
	"time"
)

const showColumns = `id, tvdb_id, title, overview, poster_url, status, genres, network, runtime, first_aired, created_at, updated_at`

func scanShow(row interface{ Scan(...any) error }) (*Show, error) {
	var s Show
	err := row.Scan(&s.ID, &s.TvdbID, &s.Title, &s.Overview, &s.PosterURL, &s.Status,
		&s.Genres, &s.Network, &s.Runtime, &s.FirstAired, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateShowParams are the inputs for CreateShow.
type CreateShowParams struct {
	TvdbID     int64
	Title      string
	Overview   sql.NullString
	PosterURL  sql.NullString
	Status     string
	Genres     sql.NullString
	Network    sql.NullString
	Runtime    sql.NullInt64
	FirstAired sql.NullTime
}

// CreateShow inserts a show. A concurrent insert for the same tvdb_id is
// resolved by the unique constraint: the existing row is returned instead.
func (s *Store) CreateShow(ctx context.Context, arg CreateShowParams) (*Show, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shows (tvdb_id, title, overview, poster_url, status, genres, network, runtime, first_aired)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tvdb_id) DO NOTHING`,
		arg.TvdbID, arg.Title, arg.Overview, arg.PosterURL, arg.Status,
		arg.Genres, arg.Network, arg.Runtime, arg.FirstAired)
	if err != nil {
		return nil, err
	}
	return s.GetShowByTvdbID(ctx, arg.TvdbID)
}

// GetShow returns a show by internal id.
func (s *Store) GetShow(ctx context.Context, id int64) (*Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	return scanShow(row)
}

// GetShowByTvdbID returns a show by its TVDB id.
func (s *Store) GetShowByTvdbID(ctx context.Context, tvdbID int64) (*Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM shows WHERE tvdb_id = ?`, tvdbID)
	return scanShow(row)
}

// SearchShowsByTitle returns catalog shows whose title matches the query.
func (s *Store) SearchShowsByTitle(ctx context.Context, query string, limit int64) ([]*Show, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+showColumns+` FROM shows
		WHERE title LIKE ? ORDER BY title LIMIT ?`,
		"%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shows []*Show
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}
	return shows, rows.Err()
}

// CountShows returns the total number of catalog shows.
func (s *Store) CountShows(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows`).Scan(&n)
	return n, err
}

const seasonColumns = `id, show_id, season_number, tvdb_season_id, title, overview, episode_count`

func scanSeason(row interface{ Scan(...any) error }) (*Season, error) {
	var se Season
	err := row.Scan(&se.ID, &se.ShowID, &se.SeasonNumber, &se.TvdbSeasonID,
		&se.Title, &se.Overview, &se.EpisodeCount)
	if err != nil {
		return nil, err
	}
	return &se, nil
}

// CreateSeasonParams are the inputs for CreateSeason.
type CreateSeasonParams struct {
	ShowID       int64
	SeasonNumber int64
	TvdbSeasonID sql.NullInt64
	Title        sql.NullString
	Overview     sql.NullString
	EpisodeCount int64
}

// CreateSeason inserts a season; a concurrent insert for the same
// (show, number) pair falls through to the existing row.
func (s *Store) CreateSeason(ctx context.Context, arg CreateSeasonParams) (*Season, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seasons (show_id, season_number, tvdb_season_id, title, overview, episode_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(show_id, season_number) DO NOTHING`,
		arg.ShowID, arg.SeasonNumber, arg.TvdbSeasonID, arg.Title, arg.Overview, arg.EpisodeCount)
	if err != nil {
		return nil, err
	}
	return s.GetSeasonByNumber(ctx, arg.ShowID, arg.SeasonNumber)
}

// GetSeasonByNumber returns a season by show id and season number.
func (s *Store) GetSeasonByNumber(ctx context.Context, showID, seasonNumber int64) (*Season, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+seasonColumns+` FROM seasons
		WHERE show_id = ? AND season_number = ?`, showID, seasonNumber)
	return scanSeason(row)
}

// ListSeasonsByShow returns all seasons for a show ordered by number.
func (s *Store) ListSeasonsByShow(ctx context.Context, showID int64) ([]*Season, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+seasonColumns+` FROM seasons
		WHERE show_id = ? ORDER BY season_number`, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []*Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, season)
	}
	return seasons, rows.Err()
}

// CountEpisodesBySeason returns the number of episode rows for a season.
func (s *Store) CountEpisodesBySeason(ctx context.Context, seasonID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE season_id = ?`, seasonID).Scan(&n)
	return n, err
}

const episodeColumns = `id, season_id, episode_number, tvdb_episode_id, title, overview, air_date, runtime`

func scanEpisode(row interface{ Scan(...any) error }) (*Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.SeasonID, &e.EpisodeNumber, &e.TvdbEpisodeID,
		&e.Title, &e.Overview, &e.AirDate, &e.Runtime)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEpisodeParams are the inputs for CreateEpisode.
type CreateEpisodeParams struct {
	SeasonID      int64
	EpisodeNumber int64
	TvdbEpisodeID sql.NullInt64
	Title         sql.NullString
	Overview      sql.NullString
	AirDate       sql.NullTime
	Runtime       sql.NullInt64
}

// CreateEpisode inserts an episode; a concurrent insert for the same
// (season, number) pair falls through to the existing row.
func (s *Store) CreateEpisode(ctx context.Context, arg CreateEpisodeParams) (*Episode, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (season_id, episode_number, tvdb_episode_id, title, overview, air_date, runtime)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(season_id, episode_number) DO NOTHING`,
		arg.SeasonID, arg.EpisodeNumber, arg.TvdbEpisodeID, arg.Title, arg.Overview, arg.AirDate, arg.Runtime)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes
		WHERE season_id = ? AND episode_number = ?`, arg.SeasonID, arg.EpisodeNumber)
	return scanEpisode(row)
}

// GetEpisodeByNumber returns an episode by show id, season number and
// episode number.
func (s *Store) GetEpisodeByNumber(ctx context.Context, showID, seasonNumber, episodeNumber int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.`+"id"+`, e.season_id, e.episode_number, e.tvdb_episode_id, e.title, e.overview, e.air_date, e.runtime
		FROM episodes e
		JOIN seasons se ON se.id = e.season_id
		WHERE se.show_id = ? AND se.season_number = ? AND e.episode_number = ?`,
		showID, seasonNumber, episodeNumber)
	return scanEpisode(row)
}

// ListEpisodesBySeason returns all episodes of a season ordered by number.
func (s *Store) ListEpisodesBySeason(ctx context.Context, seasonID int64) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes
		WHERE season_id = ? ORDER BY episode_number`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// CountEpisodesByShow returns the total episode count for a show.
func (s *Store) CountEpisodesByShow(ctx context.Context, showID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM episodes e
		JOIN seasons se ON se.id = e.season_id
		WHERE se.show_id = ?`, showID).Scan(&n)
	return n, err
}

// CalendarEpisode is an episode joined with its show for calendar views.
type CalendarEpisode struct {
	Episode
	SeasonNumber int64
	ShowID       int64
	ShowTitle    string
	PosterURL    sql.NullString
}

// ListUpcomingEpisodesForUser returns episodes airing inside [from, to)
// for shows in the user's library, ordered by air date.
func (s *Store) ListUpcomingEpisodesForUser(ctx context.Context, userID int64, from, to time.Time) ([]*CalendarEpisode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.season_id, e.episode_number, e.tvdb_episode_id, e.title, e.overview, e.air_date, e.runtime,
		       se.season_number, sh.id, sh.title, sh.poster_url
		FROM episodes e
		JOIN seasons se ON se.id = e.season_id
		JOIN shows sh ON sh.id = se.show_id
		JOIN user_shows us ON us.show_id = sh.id
		WHERE us.user_id = ? AND e.air_date IS NOT NULL AND e.air_date >= ? AND e.air_date < ?
		ORDER BY e.air_date, sh.title, e.episode_number`,
		userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*CalendarEpisode
	for rows.Next() {
		var ce CalendarEpisode
		err := rows.Scan(&ce.Episode.ID, &ce.Episode.SeasonID, &ce.Episode.EpisodeNumber,
			&ce.Episode.TvdbEpisodeID, &ce.Episode.Title, &ce.Episode.Overview,
			&ce.Episode.AirDate, &ce.Episode.Runtime,
			&ce.SeasonNumber, &ce.ShowID, &ce.ShowTitle, &ce.PosterURL)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, &ce)
	}
	return episodes, rows.Err()
}
