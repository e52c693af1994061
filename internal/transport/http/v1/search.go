package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/observability"
	"github.com/xiaot623/gogo/searchstream/internal/service"
	"github.com/xiaot623/gogo/searchstream/internal/stream"
)

const (
	maxMessageSize   = 1 << 20
	firstReadTimeout = 30 * time.Second
)

func validateSearch(req domain.SearchRequest) error {
	if len(req.Messages) == 0 {
		return errors.New("messages are required")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != domain.RoleUser {
		return errors.New("last message must be from the user")
	}
	if strings.TrimSpace(last.Content) == "" {
		return errors.New("query is required")
	}
	if req.Source != "" && !req.Source.Valid() {
		return errors.New("unknown source: " + string(req.Source))
	}
	return nil
}

// serviceRequest resolves the caller tier and builds the orchestrator input.
// A policy failure falls back to the standard tier.
func (h *Handler) serviceRequest(ctx context.Context, req domain.SearchRequest) service.Request {
	tier := domain.TierStandard
	if h.policy != nil {
		t, err := h.policy.Tier(ctx, req.User)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn("tier policy failed", "error", err)
		} else {
			tier = t
		}
	}
	return service.Request{
		Messages: req.Messages,
		UserID:   req.UserID(),
		Tier:     tier,
		Source:   req.Source,
	}
}

// Search streams a search run as server-sent events.
// POST /v1/search
func (h *Handler) Search(c echo.Context) error {
	var req domain.SearchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if err := validateSearch(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	ctx := observability.WithRequestID(c.Request().Context(), requestID(c))
	sink, err := stream.NewSSESink(c.Response())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	h.orchestrator.Run(ctx, h.serviceRequest(ctx, req), stream.NewEncoder(sink))
	return nil
}

// SearchWebSocket runs one search per connection. The client sends the
// request as the first text message and receives the events as JSON text
// messages, then {"done":true} and a normal close.
// GET /v1/search/ws
func (h *Handler) SearchWebSocket(c echo.Context) error {
	ctx, cancel := context.WithCancel(observability.WithRequestID(c.Request().Context(), requestID(c)))
	defer cancel()
	logger := observability.LoggerFromContext(ctx)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("failed to upgrade websocket", "error", err)
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	enc := stream.NewEncoder(stream.NewWebSocketSink(conn, h.writeTimeout))

	var req domain.SearchRequest
	conn.SetReadDeadline(time.Now().Add(firstReadTimeout))
	if err := conn.ReadJSON(&req); err != nil {
		logger.Warn("failed to read search request", "error", err)
		enc.Emit(domain.ErrorEvent("invalid request body"))
		enc.Emit(domain.DoneEvent())
		return nil
	}
	conn.SetReadDeadline(time.Time{})

	if err := validateSearch(req); err != nil {
		enc.Emit(domain.ErrorEvent(err.Error()))
		enc.Emit(domain.DoneEvent())
		return nil
	}

	// A read error means the client went away; stop the upstream calls.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn("websocket read failed", "error", err)
				}
				return
			}
		}
	}()

	h.orchestrator.Run(ctx, h.serviceRequest(ctx, req), enc)
	return nil
}
