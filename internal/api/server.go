// Package api wires services into the HTTP surface.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/showlog/showlog/internal/auth"
	"github.com/showlog/showlog/internal/calendar"
	"github.com/showlog/showlog/internal/catalog"
	"github.com/showlog/showlog/internal/config"
	"github.com/showlog/showlog/internal/health"
	"github.com/showlog/showlog/internal/library"
	"github.com/showlog/showlog/internal/plexsync"
	"github.com/showlog/showlog/internal/websocket"
)

// Services bundles the constructed services the server exposes.
type Services struct {
	Auth     *auth.Service
	Catalog  *catalog.Service
	Library  *library.Service
	Calendar *calendar.Service
	Sync     *plexsync.Service
	Driver   *plexsync.Driver
	Pins     plexsync.PinAPI
	Health   *health.Service
}

// Server handles HTTP requests for the ShowLog API.
type Server struct {
	echo     *echo.Echo
	hub      *websocket.Hub
	logger   zerolog.Logger
	cfg      *config.Config
	services Services
}

// NewServer creates a new API server instance.
func NewServer(services Services, hub *websocket.Hub, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		hub:      hub,
		logger:   logger,
		cfg:      cfg,
		services: services,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")

	authHandlers := auth.NewHandlers(s.services.Auth)
	authHandlers.RegisterRoutes(api.Group("/auth"))

	// Everything below requires a valid session.
	protected := api.Group("", s.services.Auth.Middleware())
	authHandlers.RegisterProtectedRoutes(protected)

	catalogHandlers := catalog.NewHandlers(s.services.Catalog)
	catalogHandlers.RegisterRoutes(protected.Group("/catalog"))

	libraryHandlers := library.NewHandlers(s.services.Library)
	libraryHandlers.RegisterRoutes(protected.Group("/library"))

	calendarHandlers := calendar.NewHandlers(s.services.Calendar)
	calendarHandlers.RegisterRoutes(protected.Group("/calendar"))

	syncHandlers := plexsync.NewHandlers(s.services.Sync, s.services.Driver, s.services.Pins)
	syncHandlers.RegisterRoutes(protected)

	healthHandlers := health.NewHandlers(s.services.Health)
	healthHandlers.RegisterRoutes(protected.Group("/health"))

	s.echo.GET("/ws", s.hub.HandleWebSocket)
}

// healthCheck responds to liveness probes.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
