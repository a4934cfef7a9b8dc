// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/agv-mapview/backend/internal/engine"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// MapFileHandler handles raw map payload uploads
type MapFileHandler interface {
	HandleUploadMap(c echo.Context) error
	HandleUploadMapBase64(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleListMaps(c echo.Context) error
	HandleGetMap(c echo.Context) error
	HandleRenameMap(c echo.Context) error
	HandleDeleteMap(c echo.Context) error
}

// SessionHandler handles map session lifecycle operations
type SessionHandler interface {
	HandleOpenSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleSessionStatus(c echo.Context) error
	HandleSessionProgressStream(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleCloseSession(c echo.Context) error
}

// ViewHandler handles viewport and scene output operations
type ViewHandler interface {
	HandleStats(c echo.Context) error
	HandleScene(c echo.Context) error
	HandleSceneMsgpack(c echo.Context) error
	HandlePreview(c echo.Context) error
	HandleSetScale(c echo.Context) error
	HandleSetFloor(c echo.Context) error
	HandleGetFilter(c echo.Context) error
	HandleSetFilter(c echo.Context) error
	HandleGetOutline(c echo.Context) error
	HandleEditOutline(c echo.Context) error
	HandleSetOutlineEdge(c echo.Context) error
	HandleCloseOutline(c echo.Context) error
}

// InteractionHandler handles selection and overlay operations
type InteractionHandler interface {
	HandleVisibleParks(c echo.Context) error
	HandleParksAt(c echo.Context) error
	HandleGetPark(c echo.Context) error
	HandleGetSelection(c echo.Context) error
	HandleSetSelection(c echo.Context) error
	HandleSelectPark(c echo.Context) error
	HandleDeselectPark(c echo.Context) error
	HandleClearSelection(c echo.Context) error
	HandleSetCandidates(c echo.Context) error
	HandleSetStock(c echo.Context) error
	HandleSetTags(c echo.Context) error
	HandleSetStatuses(c echo.Context) error
	HandleGetOverlay(c echo.Context) error
	HandleSetOverlay(c echo.Context) error
	HandleMoveTruck(c echo.Context) error
	HandleShowTravel(c echo.Context) error
}

// StreamHandler streams scene events over a websocket
type StreamHandler interface {
	HandleSceneEvents(c echo.Context) error
}

// SessionManager defines the session operations the handlers need.
// This allows mocking in tests
type SessionManager interface {
	StartSession(mapID, filePath string) (*models.MapSession, error)
	GetSession(id string) (*models.MapSession, bool)
	ListSessions() []*models.MapSession
	Engine(id string) (*engine.MapEngine, error)
	TouchSession(id string) bool
	CloseSession(id string) error
	CloseSessionsForMap(mapID string) int
}
