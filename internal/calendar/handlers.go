package calendar

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/showlog/showlog/internal/auth"
)

// Handlers provides HTTP handlers for the calendar.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new calendar handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers calendar routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Upcoming)
}

// Upcoming returns upcoming episodes for the user's library.
// GET /api/v1/calendar?days=14
func (h *Handlers) Upcoming(c echo.Context) error {
	days := 14
	if d := c.QueryParam("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}

	items, err := h.service.Upcoming(c.Request().Context(), auth.UserID(c), days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
