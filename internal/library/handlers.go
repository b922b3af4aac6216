package library

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/showlog/showlog/internal/auth"
)

// Handlers provides HTTP handlers for library operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new library handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers library routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/shows/:showId", h.Add)
	g.DELETE("/shows/:showId", h.Remove)
	g.PUT("/shows/:showId/status", h.SetStatus)
	g.PUT("/shows/:showId/rating", h.SetRating)
	g.PUT("/episodes/:episodeId/watched", h.SetEpisodeWatched)
}

// List returns the user's library with progress.
// GET /api/v1/library
func (h *Handlers) List(c echo.Context) error {
	entries, err := h.service.List(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

// Add puts a show into the library.
// POST /api/v1/library/shows/:showId
func (h *Handlers) Add(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}

	if err := h.service.Add(c.Request().Context(), auth.UserID(c), showID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Remove deletes a show from the library.
// DELETE /api/v1/library/shows/:showId
func (h *Handlers) Remove(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}

	if err := h.service.Remove(c.Request().Context(), auth.UserID(c), showID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus changes the tracking status of a show.
// PUT /api/v1/library/shows/:showId/status
func (h *Handlers) SetStatus(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err = h.service.SetStatus(c.Request().Context(), auth.UserID(c), showID, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotInLibrary):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type ratingRequest struct {
	Rating int64 `json:"rating"`
}

// SetRating sets or clears the user's rating for a show.
// PUT /api/v1/library/shows/:showId/rating
func (h *Handlers) SetRating(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}

	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err = h.service.SetRating(c.Request().Context(), auth.UserID(c), showID, req.Rating)
	switch {
	case errors.Is(err, ErrInvalidRating):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotInLibrary):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type watchedRequest struct {
	Watched bool `json:"watched"`
}

// SetEpisodeWatched toggles an episode's watched flag.
// PUT /api/v1/library/episodes/:episodeId/watched
func (h *Handlers) SetEpisodeWatched(c echo.Context) error {
	episodeID, err := strconv.ParseInt(c.Param("episodeId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid episode id")
	}

	var req watchedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetEpisodeWatched(c.Request().Context(), auth.UserID(c), episodeID, req.Watched); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
