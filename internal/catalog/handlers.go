package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for catalog operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new catalog handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers catalog routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
	g.POST("/shows", h.AddShow)
	g.GET("/shows/:showId", h.GetShow)
	g.POST("/shows/:showId/refresh", h.RefreshShow)
}

// Search queries the metadata provider.
// GET /api/v1/catalog/search?q=...
func (h *Handlers) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	results, err := h.service.Search(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

type addShowRequest struct {
	TvdbID int64 `json:"tvdbId"`
}

// AddShow fetches a series by TVDB id and stores it in the catalog.
// POST /api/v1/catalog/shows
func (h *Handlers) AddShow(c echo.Context) error {
	var req addShowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TvdbID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tvdbId is required")
	}

	show, err := h.service.AddShowByTvdbID(c.Request().Context(), req.TvdbID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusCreated, show)
}

// GetShow returns a show with its seasons and episodes.
// GET /api/v1/catalog/shows/:showId
func (h *Handlers) GetShow(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}

	show, err := h.service.GetShowDetail(c.Request().Context(), showID)
	if err != nil {
		if errors.Is(err, ErrShowNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, show)
}

// RefreshShow re-fetches episode metadata for a show.
// POST /api/v1/catalog/shows/:showId/refresh
func (h *Handlers) RefreshShow(c echo.Context) error {
	showID, err := strconv.ParseInt(c.Param("showId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid show id")
	}

	if err := h.service.RefreshShow(c.Request().Context(), showID); err != nil {
		if errors.Is(err, ErrShowNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
