package store

import (
	"context"
	"database/sql"
	"time"
)

// CreateSyncLogParams are the inputs for CreateSyncLog.
type CreateSyncLogParams struct {
	UserID         int64
	Provider       string
	Status         string
	ShowsSynced    int64
	EpisodesSynced int64
	Errors         sql.NullString
	DurationMs     int64
}

// CreateSyncLog appends a sync run record for a user.
func (s *Store) CreateSyncLog(ctx context.Context, arg CreateSyncLogParams) (*SyncLog, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (user_id, provider, status, shows_synced, episodes_synced, errors, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.UserID, arg.Provider, arg.Status, arg.ShowsSynced, arg.EpisodesSynced, arg.Errors, arg.DurationMs)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	var sl SyncLog
	err = s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, status, shows_synced, episodes_synced, errors, duration_ms, created_at
		FROM sync_logs WHERE id = ?`, id).
		Scan(&sl.ID, &sl.UserID, &sl.Provider, &sl.Status, &sl.ShowsSynced,
			&sl.EpisodesSynced, &sl.Errors, &sl.DurationMs, &sl.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

// ListSyncLogsByUser returns a user's most recent sync runs.
func (s *Store) ListSyncLogsByUser(ctx context.Context, userID, limit int64) ([]*SyncLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, status, shows_synced, episodes_synced, errors, duration_ms, created_at
		FROM sync_logs
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*SyncLog
	for rows.Next() {
		var sl SyncLog
		err := rows.Scan(&sl.ID, &sl.UserID, &sl.Provider, &sl.Status, &sl.ShowsSynced,
			&sl.EpisodesSynced, &sl.Errors, &sl.DurationMs, &sl.CreatedAt)
		if err != nil {
			return nil, err
		}
		logs = append(logs, &sl)
	}
	return logs, rows.Err()
}

const integrationColumns = `id, user_id, provider, access_token, server_url, enabled, auto_sync, last_sync_at, created_at, updated_at`

func scanIntegration(row interface{ Scan(...any) error }) (*Integration, error) {
	var in Integration
	err := row.Scan(&in.ID, &in.UserID, &in.Provider, &in.AccessToken, &in.ServerURL,
		&in.Enabled, &in.AutoSync, &in.LastSyncAt, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// UpsertIntegrationParams are the inputs for UpsertIntegration.
type UpsertIntegrationParams struct {
	UserID      int64
	Provider    string
	AccessToken string
	ServerURL   string
	Enabled     bool
	AutoSync    bool
}

// UpsertIntegration creates or replaces a user's connection to an external
// provider. Reconnecting resets the last sync timestamp.
func (s *Store) UpsertIntegration(ctx context.Context, arg UpsertIntegrationParams) (*Integration, error) {
	enabled := int64(0)
	if arg.Enabled {
		enabled = 1
	}
	autoSync := int64(0)
	if arg.AutoSync {
		autoSync = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO integrations (user_id, provider, access_token, server_url, enabled, auto_sync)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			server_url = excluded.server_url,
			enabled = excluded.enabled,
			auto_sync = excluded.auto_sync,
			last_sync_at = NULL,
			updated_at = CURRENT_TIMESTAMP`,
		arg.UserID, arg.Provider, arg.AccessToken, arg.ServerURL, enabled, autoSync)
	if err != nil {
		return nil, err
	}
	return s.GetIntegration(ctx, arg.UserID, arg.Provider)
}

// GetIntegration returns a user's connection for a provider.
func (s *Store) GetIntegration(ctx context.Context, userID int64, provider string) (*Integration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+integrationColumns+` FROM integrations
		WHERE user_id = ? AND provider = ?`, userID, provider)
	return scanIntegration(row)
}

// UpdateIntegrationLastSync stamps the time of the last completed sync.
func (s *Store) UpdateIntegrationLastSync(ctx context.Context, userID int64, provider string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE integrations SET last_sync_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND provider = ?`,
		at, userID, provider)
	return err
}

// DeleteIntegration removes a user's provider connection.
func (s *Store) DeleteIntegration(ctx context.Context, userID int64, provider string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM integrations WHERE user_id = ? AND provider = ?`, userID, provider)
	return err
}

// ListAutoSyncIntegrations returns enabled integrations with auto sync on,
// ordered by user id for deterministic scheduled runs.
func (s *Store) ListAutoSyncIntegrations(ctx context.Context, provider string) ([]*Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+integrationColumns+` FROM integrations
		WHERE provider = ? AND enabled = 1 AND auto_sync = 1
		ORDER BY user_id`, provider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []*Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, in)
	}
	return integrations, rows.Err()
}
