package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/searchstream/internal/repository"
)

// GetConversation returns one stored conversation. When user_id is given,
// conversations of other users are reported as not found.
// GET /v1/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	if h.store == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "conversation store disabled")
	}

	id := c.Param("conversation_id")
	conv, err := h.store.GetConversation(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "conversation not found")
	}
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if userID := c.QueryParam("user_id"); userID != "" && userID != conv.UserID {
		return errorJSON(c, http.StatusNotFound, "conversation not found")
	}

	return c.JSON(http.StatusOK, conv)
}

// ListConversations lists a user's conversations, newest first.
// GET /v1/users/:user_id/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	if h.store == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "conversation store disabled")
	}

	userID := c.Param("user_id")
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}

	conversations, err := h.store.ListConversations(c.Request().Context(), userID, limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"has_more":      len(conversations) == limit, // Approximate
	})
}
