// Package http provides the HTTP server of the search service.
package http

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	v1 "github.com/xiaot623/gogo/searchstream/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server.
func NewServer(handler *v1.Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register Routes
	handler.RegisterRoutes(e)

	return e
}
