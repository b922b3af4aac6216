package plexsync

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/showlog/showlog/internal/auth"
	"github.com/showlog/showlog/internal/plex"
)

// PinAPI is the subset of the Plex client used for the PIN login flow.
type PinAPI interface {
	CreatePIN(ctx context.Context) (*plex.PINResponse, error)
	CheckPIN(ctx context.Context, pinID int) (*plex.PINStatus, error)
	GetAuthURL(pinCode string) string
}

// Handlers provides HTTP handlers for sync and integration operations.
type Handlers struct {
	service *Service
	driver  *Driver
	pins    PinAPI
}

// NewHandlers creates a new sync handlers instance. driver may be nil
// when scheduled sync is not wired, pins when PIN login is not.
func NewHandlers(service *Service, driver *Driver, pins PinAPI) *Handlers {
	return &Handlers{service: service, driver: driver, pins: pins}
}

// RegisterRoutes registers sync routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/sync", h.Sync)
	g.GET("/sync/history", h.History)
	g.GET("/integrations/plex", h.Status)
	g.POST("/integrations/plex", h.Connect)
	g.DELETE("/integrations/plex", h.Disconnect)
	g.POST("/integrations/plex/pin", h.StartPIN)
	g.GET("/integrations/plex/pin/:id", h.CheckPIN)
}

// Sync runs an immediate import for the authenticated user.
// POST /api/v1/sync
func (h *Handlers) Sync(c echo.Context) error {
	result, err := h.service.SyncAndRecord(c.Request().Context(), auth.UserID(c))
	switch {
	case errors.Is(err, ErrIntegrationNotConfigured):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, ErrSyncInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil && result == nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// History returns recent sync runs for the authenticated user.
// GET /api/v1/sync/history?limit=20
func (h *Handlers) History(c echo.Context) error {
	limit := int64(20)
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.ParseInt(l, 10, 64); err == nil && v > 0 {
			limit = v
		}
	}

	logs, err := h.service.History(c.Request().Context(), auth.UserID(c), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	entries := make([]syncLogEntry, 0, len(logs))
	for _, row := range logs {
		entry := syncLogEntry{
			ID:             row.ID,
			Provider:       row.Provider,
			Status:         row.Status,
			ShowsSynced:    row.ShowsSynced,
			EpisodesSynced: row.EpisodesSynced,
			DurationMs:     row.DurationMs,
		}
		if row.Errors.Valid {
			entry.Errors = row.Errors.String
		}
		if row.CreatedAt.Valid {
			entry.CreatedAt = row.CreatedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		entries = append(entries, entry)
	}

	return c.JSON(http.StatusOK, entries)
}

type syncLogEntry struct {
	ID             int64  `json:"id"`
	Provider       string `json:"provider"`
	Status         string `json:"status"`
	ShowsSynced    int64  `json:"showsSynced"`
	EpisodesSynced int64  `json:"episodesSynced"`
	Errors         string `json:"errors,omitempty"`
	DurationMs     int64  `json:"durationMs"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

type connectRequest struct {
	Token      string `json:"token"`
	ServerName string `json:"serverName,omitempty"`
	AutoSync   *bool  `json:"autoSync,omitempty"`
}

// Connect stores a Plex connection for the authenticated user.
// POST /api/v1/integrations/plex
func (h *Handlers) Connect(c echo.Context) error {
	var req connectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	autoSync := true
	if req.AutoSync != nil {
		autoSync = *req.AutoSync
	}

	status, err := h.service.Connect(c.Request().Context(), auth.UserID(c), ConnectOptions{
		Token:      req.Token,
		ServerName: req.ServerName,
		AutoSync:   autoSync,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

// Disconnect removes the Plex connection.
// DELETE /api/v1/integrations/plex
func (h *Handlers) Disconnect(c echo.Context) error {
	if err := h.service.Disconnect(c.Request().Context(), auth.UserID(c)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Status returns the Plex connection state.
// GET /api/v1/integrations/plex
func (h *Handlers) Status(c echo.Context) error {
	status, err := h.service.Status(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

// StartPIN begins the plex.tv PIN login flow and returns the PIN together
// with the URL the user opens to approve it.
// POST /api/v1/integrations/plex/pin
func (h *Handlers) StartPIN(c echo.Context) error {
	if h.pins == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "PIN login is not available")
	}

	pin, err := h.pins.CreatePIN(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":        pin.ID,
		"code":      pin.Code,
		"expiresAt": pin.ExpiresAt,
		"authUrl":   h.pins.GetAuthURL(pin.Code),
	})
}

// CheckPIN polls a PIN. Once approved the returned token can be passed to
// Connect.
// GET /api/v1/integrations/plex/pin/:id
func (h *Handlers) CheckPIN(c echo.Context) error {
	if h.pins == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "PIN login is not available")
	}

	pinID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid pin id")
	}

	status, err := h.pins.CheckPIN(c.Request().Context(), pinID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":         status.ID,
		"authorized": status.AuthToken != "",
		"token":      status.AuthToken,
	})
}
