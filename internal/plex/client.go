// Package plex is a client for the plex.tv account API and for Plex Media
// Server library endpoints.
package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	plexTVBaseURL = "https://plex.tv"
	product       = "ShowLog"
)

// Client handles communication with the Plex API.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	clientID   string
	version    string
}

// NewClient creates a new Plex API client.
func NewClient(httpClient *http.Client, logger zerolog.Logger, version string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "plex-client").Logger(),
		clientID:   uuid.New().String(),
		version:    version,
	}
}

func (c *Client) getHeaders(token string) map[string]string {
	headers := map[string]string{
		"X-Plex-Client-Identifier": c.clientID,
		"X-Plex-Product":           product,
		"X-Plex-Version":           c.version,
		"X-Plex-Platform":          runtime.GOOS,
		"X-Plex-Platform-Version":  runtime.GOARCH,
		"X-Plex-Device":            runtime.GOOS,
		"X-Plex-Device-Name":       product,
		"Accept":                   "application/json",
		"Content-Type":             "application/x-www-form-urlencoded",
	}
	if token != "" {
		headers["X-Plex-Token"] = token
	}
	return headers
}

func (c *Client) doRequest(ctx context.Context, method, url string, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.getHeaders(token) {
		req.Header.Set(key, value)
	}

	return c.httpClient.Do(req)
}

// CreatePIN creates a new PIN for authentication.
func (c *Client) CreatePIN(ctx context.Context) (*PINResponse, error) {
	url := fmt.Sprintf("%s/api/v2/pins", plexTVBaseURL)

	data := strings.NewReader("strong=true")
	resp, err := c.doRequest(ctx, http.MethodPost, url, "", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create PIN: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to create PIN: status %d, body: %s", resp.StatusCode, string(body))
	}

	var pin PINResponse
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		return nil, fmt.Errorf("failed to decode PIN response: %w", err)
	}

	return &pin, nil
}

// CheckPIN checks the status of a PIN authentication.
func (c *Client) CheckPIN(ctx context.Context, pinID int) (*PINStatus, error) {
	url := fmt.Sprintf("%s/api/v2/pins/%d", plexTVBaseURL, pinID)

	resp, err := c.doRequest(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check PIN: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to check PIN: status %d, body: %s", resp.StatusCode, string(body))
	}

	var status PINStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode PIN status: %w", err)
	}

	return &status, nil
}

// GetAuthURL returns the URL for user authentication.
func (c *Client) GetAuthURL(pinCode string) string {
	params := url.Values{}
	params.Set("clientID", c.clientID)
	params.Set("code", pinCode)
	params.Set("context[device][product]", product)
	params.Set("context[device][version]", c.version)
	params.Set("context[device][platform]", runtime.GOOS)
	params.Set("context[device][platformVersion]", runtime.GOARCH)
	params.Set("context[device][device]", runtime.GOOS)
	params.Set("context[device][deviceName]", product)

	return fmt.Sprintf("https://app.plex.tv/auth#?%s", params.Encode())
}

// GetResources returns all resources (servers) available to the user.
func (c *Client) GetResources(ctx context.Context, token string) ([]Server, error) {
	url := fmt.Sprintf("%s/api/v2/resources?includeHttps=1&includeRelay=1", plexTVBaseURL)

	resp, err := c.doRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get resources: status %d, body: %s", resp.StatusCode, string(body))
	}

	var resources []Server
	if err := json.NewDecoder(resp.Body).Decode(&resources); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}

	var servers []Server
	for _, r := range resources {
		if !strings.Contains(r.Provides, "server") {
			continue
		}
		servers = append(servers, r)
	}

	return servers, nil
}

// TestConnection tests the connection to a Plex server.
func (c *Client) TestConnection(ctx context.Context, serverURL, token string) error {
	url := fmt.Sprintf("%s/identity", serverURL)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.doRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// FindServerURL attempts to find a working URL for a server, preferring
// direct connections over relays.
func (c *Client) FindServerURL(ctx context.Context, server Server, token string) (string, error) {
	for _, conn := range server.Connections {
		if conn.Relay {
			continue
		}

		testCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.TestConnection(testCtx, conn.URI, token)
		cancel()

		if err == nil {
			return conn.URI, nil
		}
		c.logger.Debug().Err(err).Str("uri", conn.URI).Msg("Connection test failed")
	}

	for _, conn := range server.Connections {
		if !conn.Relay {
			continue
		}

		testCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.TestConnection(testCtx, conn.URI, token)
		cancel()

		if err == nil {
			return conn.URI, nil
		}
		c.logger.Debug().Err(err).Str("uri", conn.URI).Msg("Relay connection test failed")
	}

	return "", fmt.Errorf("no working connection found for server %s", server.Name)
}

// ListLibraries returns the library sections for a server.
func (c *Client) ListLibraries(ctx context.Context, serverURL, token string) ([]LibrarySection, error) {
	url := fmt.Sprintf("%s/library/sections", serverURL)

	resp, err := c.doRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get library sections: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get library sections: status %d, body: %s", resp.StatusCode, string(body))
	}

	var mediaContainer struct {
		MediaContainer struct {
			Directory []struct {
				Key   string `json:"key"`
				Title string `json:"title"`
				Type  string `json:"type"`
			} `json:"Directory"`
		} `json:"MediaContainer"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mediaContainer); err != nil {
		return nil, fmt.Errorf("failed to decode library sections: %w", err)
	}

	var sections []LibrarySection
	for _, dir := range mediaContainer.MediaContainer.Directory {
		key, err := parseKey(dir.Key)
		if err != nil {
			continue
		}
		sections = append(sections, LibrarySection{
			Key:   key,
			Title: dir.Title,
			Type:  dir.Type,
		})
	}

	return sections, nil
}

// ListShows returns all TV shows in a library section with their external
// GUIDs included.
func (c *Client) ListShows(ctx context.Context, serverURL, token string, sectionKey int) ([]Show, error) {
	url := fmt.Sprintf("%s/library/sections/%d/all?type=2&includeGuids=1", serverURL, sectionKey)

	resp, err := c.doRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list shows: status %d, body: %s", resp.StatusCode, string(body))
	}

	var mediaContainer struct {
		MediaContainer struct {
			Metadata []struct {
				RatingKey string `json:"ratingKey"`
				Title     string `json:"title"`
				Year      int    `json:"year"`
				GUID      []struct {
					ID string `json:"id"`
				} `json:"Guid"`
			} `json:"Metadata"`
		} `json:"MediaContainer"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mediaContainer); err != nil {
		return nil, fmt.Errorf("failed to decode shows: %w", err)
	}

	shows := make([]Show, 0, len(mediaContainer.MediaContainer.Metadata))
	for _, m := range mediaContainer.MediaContainer.Metadata {
		show := Show{
			RatingKey: m.RatingKey,
			Title:     m.Title,
			Year:      m.Year,
		}
		for _, g := range m.GUID {
			show.GUIDs = append(show.GUIDs, g.ID)
		}
		shows = append(shows, show)
	}

	return shows, nil
}

// ListWatchedEpisodes returns all episodes in a section that have at least
// one recorded play.
func (c *Client) ListWatchedEpisodes(ctx context.Context, serverURL, token string, sectionKey int) ([]WatchedEpisode, error) {
	// type=4 selects episode leaves. Filtering on viewCount happens
	// client-side since server-side comparison filters are not uniform
	// across Plex versions.
	reqURL := fmt.Sprintf("%s/library/sections/%d/all?type=4", serverURL, sectionKey)

	resp, err := c.doRequest(ctx, http.MethodGet, reqURL, token, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched episodes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list watched episodes: status %d, body: %s", resp.StatusCode, string(body))
	}

	var mediaContainer struct {
		MediaContainer struct {
			Metadata []struct {
				RatingKey            string `json:"ratingKey"`
				GrandparentRatingKey string `json:"grandparentRatingKey"`
				GrandparentTitle     string `json:"grandparentTitle"`
				ParentIndex          int    `json:"parentIndex"`
				Index                int    `json:"index"`
				Title                string `json:"title"`
				ViewCount            int    `json:"viewCount"`
				LastViewedAt         int64  `json:"lastViewedAt"`
			} `json:"Metadata"`
		} `json:"MediaContainer"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&mediaContainer); err != nil {
		return nil, fmt.Errorf("failed to decode watched episodes: %w", err)
	}

	var episodes []WatchedEpisode
	for _, m := range mediaContainer.MediaContainer.Metadata {
		if m.ViewCount < 1 {
			continue
		}
		episodes = append(episodes, WatchedEpisode{
			ShowRatingKey: m.GrandparentRatingKey,
			ShowTitle:     m.GrandparentTitle,
			SeasonNumber:  m.ParentIndex,
			EpisodeNumber: m.Index,
			Title:         m.Title,
			ViewCount:     m.ViewCount,
			LastViewedAt:  m.LastViewedAt,
		})
	}

	return episodes, nil
}

func parseKey(s string) (int, error) {
	var key int
	_, err := fmt.Sscanf(s, "%d", &key)
	return key, err
}
