// handlers_sessions.go - Map session lifecycle handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agv-mapview/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

const (
	progressInterval = 100 * time.Millisecond
	progressTimeout  = 5 * time.Minute
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	store    storage.Store
	sessions SessionManager
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(store storage.Store, sessions SessionManager) SessionHandler {
	return &SessionHandlerImpl{store: store, sessions: sessions}
}

type openSessionRequest struct {
	MapID string `json:"mapId"`
}

// HandleOpenSession starts loading a stored map into a new session
func (h *SessionHandlerImpl) HandleOpenSession(c echo.Context) error {
	var req openSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.MapID == "" {
		return NewValidationError("mapId")
	}

	path, err := h.store.GetFilePath(req.MapID)
	if err != nil {
		return FromError(err)
	}
	sess, err := h.sessions.StartSession(req.MapID, path)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusAccepted, sess)
}

// HandleListSessions returns every open session
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.ListSessions())
}

// HandleSessionStatus returns the status of a session
func (h *SessionHandlerImpl) HandleSessionStatus(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleSessionProgressStream streams load progress via SSE
func (h *SessionHandlerImpl) HandleSessionProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sendSSEData(c, sess)
	if sess.Done() {
		return nil
	}

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(progressTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			sess, ok := h.sessions.GetSession(id)
			if !ok {
				sendSSEData(c, map[string]string{"error": "session not found"})
				return nil
			}
			sendSSEData(c, sess)
			// Stop streaming once loading has finished
			if sess.Done() {
				return nil
			}
		case <-timeout.C:
			sendSSEData(c, map[string]string{"error": "stream timeout"})
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// HandleSessionKeepAlive marks a session as in use
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if ok := h.sessions.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleCloseSession releases a session and its engine
func (h *SessionHandlerImpl) HandleCloseSession(c echo.Context) error {
	if err := h.sessions.CloseSession(c.Param("sessionId")); err != nil {
		return FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}
