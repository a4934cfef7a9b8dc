package api

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/agv-mapview/backend/internal/render"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebSocket message types for the scene event stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected  = "connected"
	MsgTypeSceneEvent = "scene:event"
	// MsgTypeResync tells the client it missed events and must refetch the
	// scene.
	MsgTypeResync = "scene:resync"
	MsgTypePong   = "pong"
	MsgTypeError  = "error"
)

const (
	eventBuffer = 1024
	writeWait   = 10 * time.Second
)

// WSMessage is the envelope of every websocket message.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is the payload of an error message.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SceneStreamHandler streams a session's scene changes over WebSocket
type SceneStreamHandler struct {
	sessions SessionManager
	upgrader websocket.Upgrader
	maxRead  int64
	logger   *zap.Logger
}

// NewSceneStreamHandler creates a scene event stream handler. maxMessageKB
// bounds client messages.
func NewSceneStreamHandler(sessions SessionManager, maxMessageKB int, logger *zap.Logger) *SceneStreamHandler {
	if maxMessageKB <= 0 {
		maxMessageKB = 64
	}
	return &SceneStreamHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxRead: int64(maxMessageKB) * 1024,
		logger:  logger,
	}
}

// HandleSceneEvents upgrades the connection and forwards scene events
// until the client disconnects.
func (h *SceneStreamHandler) HandleSceneEvents(c echo.Context) error {
	id := c.Param("sessionId")
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(h.maxRead)

	logger := h.logger.With(zap.String("session", id))
	logger.Debug("scene stream connected")

	events := make(chan render.Event, eventBuffer)
	var dropped atomic.Bool
	// Scene listeners run synchronously; never block the engine.
	cancel := eng.Subscribe(func(ev render.Event) {
		select {
		case events <- ev:
		default:
			dropped.Store(true)
		}
	})
	defer cancel()

	pongs := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("scene stream read failed", zap.Error(err))
				}
				return
			}
			if msg.Type == MsgTypePing {
				h.sessions.TouchSession(id)
				select {
				case pongs <- struct{}{}:
				default:
				}
			}
		}
	}()

	if err := h.send(ws, MsgTypeConnected, id, nil); err != nil {
		return nil
	}

	for {
		select {
		case <-done:
			logger.Debug("scene stream disconnected")
			return nil
		case <-pongs:
			if err := h.send(ws, MsgTypePong, "", nil); err != nil {
				return nil
			}
		case ev := <-events:
			if dropped.Swap(false) {
				// Drain what is queued; the client refetches everything.
				drain(events)
				if err := h.send(ws, MsgTypeResync, id, nil); err != nil {
					return nil
				}
				continue
			}
			if err := h.send(ws, MsgTypeSceneEvent, "", ev); err != nil {
				return nil
			}
		}
	}
}

func drain(events chan render.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

func (h *SceneStreamHandler) send(ws *websocket.Conn, typ, id string, payload interface{}) error {
	msg := WSMessage{Type: typ, ID: id, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = data
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(msg); err != nil {
		h.logger.Debug("failed to send websocket message", zap.String("type", typ), zap.Error(err))
		return err
	}
	return nil
}
