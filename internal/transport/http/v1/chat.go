package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"advisor/internal/domain"
)

// ChatRequest is the body of a chat message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ClearRequest optionally names the session to clear.
type ClearRequest struct {
	SessionID string `json:"sessionId"`
}

func profileJSON(u domain.UserProfile) map[string]interface{} {
	completed := u.CompletedTrainings
	if completed == nil {
		completed = []string{}
	}
	return map[string]interface{}{
		"id":                 u.ID,
		"name":               u.Name,
		"department":         u.Department,
		"title":              u.Title,
		"completedTrainings": completed,
	}
}

// GetUser returns a user profile.
// GET /users/:userId
func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.chat.Profile(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profileJSON(user),
	})
}

// InitChat returns the welcome message for a user.
// POST /users/:userId/chat/init
func (h *Handler) InitChat(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("userId")

	user, err := h.chat.Profile(ctx, userID)
	if err != nil {
		return h.fail(c, err)
	}
	msg, err := h.chat.Welcome(ctx, userID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"userId":      userID,
		"message":     msg,
		"userProfile": profileJSON(user),
	})
}

// Chat answers one message.
// POST /users/:userId/chat
func (h *Handler) Chat(c echo.Context) error {
	userID := c.Param("userId")

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request body"})
	}
	if req.SessionID == "" {
		req.SessionID = domain.DefaultSessionID
	}

	reply, err := h.chat.HandleMessage(c.Request().Context(), userID, req.Message, req.SessionID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"userId":      userID,
		"sessionId":   req.SessionID,
		"userMessage": req.Message,
		"aiResponse":  reply,
		"timestamp":   h.now().UTC().Format(time.RFC3339),
	})
}

// GetHistory returns the transcript of a session.
// GET /users/:userId/chat/history?sessionId=
func (h *Handler) GetHistory(c echo.Context) error {
	userID := c.Param("userId")
	sessionID := c.QueryParam("sessionId")
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	turns, err := h.chat.History(c.Request().Context(), userID, sessionID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":       true,
		"userId":        userID,
		"sessionId":     sessionID,
		"history":       turns,
		"totalMessages": len(turns),
	})
}

// ClearHistory deletes a session. The session comes from the query string
// or, as older clients send it, the JSON body.
// DELETE /users/:userId/chat/history?sessionId=
func (h *Handler) ClearHistory(c echo.Context) error {
	userID := c.Param("userId")
	sessionID := c.QueryParam("sessionId")
	if sessionID == "" && c.Request().ContentLength > 0 {
		var req ClearRequest
		if err := c.Bind(&req); err == nil {
			sessionID = req.SessionID
		}
	}
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	if err := h.chat.ClearHistory(c.Request().Context(), userID, sessionID); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Chat history cleared successfully",
		"userId":    userID,
		"sessionId": sessionID,
	})
}
