// Package v1 provides the public HTTP handlers of the search service.
package v1

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/searchstream/internal/repository"
	"github.com/xiaot623/gogo/searchstream/internal/service"
	"github.com/xiaot623/gogo/searchstream/policy"
)

// DefaultWriteTimeout bounds a single WebSocket write.
const DefaultWriteTimeout = 10 * time.Second

// Handler handles HTTP requests.
type Handler struct {
	orchestrator *service.Orchestrator
	store        repository.Store
	policy       *policy.Engine
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

// NewHandler creates a new handler. store may be nil, which disables the
// conversation read endpoints.
func NewHandler(orchestrator *service.Orchestrator, store repository.Store, policyEngine *policy.Engine) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		policy:       policyEngine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeTimeout: DefaultWriteTimeout,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/search", h.Search)
	e.GET("/v1/search/ws", h.SearchWebSocket)

	e.GET("/v1/conversations/:conversation_id", h.GetConversation)
	e.GET("/v1/users/:user_id/conversations", h.ListConversations)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// requestID returns the id assigned by the RequestID middleware, or a new one.
func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}
