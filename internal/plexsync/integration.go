package plexsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/showlog/showlog/internal/database/store"
)

// IntegrationStatus describes a user's Plex connection without exposing
// the access token.
type IntegrationStatus struct {
	Connected  bool       `json:"connected"`
	ServerURL  string     `json:"serverUrl,omitempty"`
	Enabled    bool       `json:"enabled"`
	AutoSync   bool       `json:"autoSync"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

// ConnectOptions are the inputs for Connect.
type ConnectOptions struct {
	Token      string
	ServerName string // optional, first owned server when empty
	AutoSync   bool
}

// Connect validates a Plex account token, discovers a reachable server
// URL and stores the connection with the token encrypted at rest.
func (s *Service) Connect(ctx context.Context, userID int64, opts ConnectOptions) (*IntegrationStatus, error) {
	if opts.Token == "" {
		return nil, errors.New("access token is required")
	}

	servers, err := s.plex.GetResources(ctx, opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	if len(servers) == 0 {
		return nil, errors.New("no servers available for this account")
	}

	chosen := -1
	for i, server := range servers {
		if opts.ServerName != "" {
			if server.Name == opts.ServerName {
				chosen = i
				break
			}
			continue
		}
		if server.Owned {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		if opts.ServerName != "" {
			return nil, fmt.Errorf("server %q not found", opts.ServerName)
		}
		chosen = 0
	}

	server := servers[chosen]
	// Shared servers carry their own access token.
	serverToken := opts.Token
	if server.AccessToken != "" {
		serverToken = server.AccessToken
	}

	serverURL, err := s.plex.FindServerURL(ctx, server, serverToken)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}

	encrypted, err := s.secrets.Encrypt(serverToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token: %w", err)
	}

	row, err := s.store.UpsertIntegration(ctx, store.UpsertIntegrationParams{
		UserID:      userID,
		Provider:    ProviderPlex,
		AccessToken: encrypted,
		ServerURL:   serverURL,
		Enabled:     true,
		AutoSync:    opts.AutoSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store integration: %w", err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Str("server", server.Name).
		Msg("Plex integration connected")

	return integrationToStatus(row.ServerURL, row.Enabled, row.AutoSync, row.LastSyncAt), nil
}

// Disconnect removes the user's Plex connection. Imported watch history
// is kept.
func (s *Service) Disconnect(ctx context.Context, userID int64) error {
	if err := s.store.DeleteIntegration(ctx, userID, ProviderPlex); err != nil {
		return fmt.Errorf("failed to remove integration: %w", err)
	}
	s.logger.Info().Int64("user_id", userID).Msg("Plex integration disconnected")
	return nil
}

// Status returns the user's connection state.
func (s *Service) Status(ctx context.Context, userID int64) (*IntegrationStatus, error) {
	row, err := s.store.GetIntegration(ctx, userID, ProviderPlex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &IntegrationStatus{Connected: false}, nil
		}
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	return integrationToStatus(row.ServerURL, row.Enabled, row.AutoSync, row.LastSyncAt), nil
}

func integrationToStatus(serverURL string, enabled, autoSync int64, lastSync sql.NullTime) *IntegrationStatus {
	status := &IntegrationStatus{
		Connected: true,
		ServerURL: serverURL,
		Enabled:   enabled != 0,
		AutoSync:  autoSync != 0,
	}
	if lastSync.Valid {
		t := lastSync.Time
		status.LastSyncAt = &t
	}
	return status
}
