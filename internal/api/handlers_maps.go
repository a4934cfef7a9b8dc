// handlers_maps.go - Map payload upload and management handlers
package api

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// recentMapsLimit caps the map list.
const recentMapsLimit = 50

// MapFileHandlerImpl implements the MapFileHandler interface
type MapFileHandlerImpl struct {
	store         storage.Store
	sessions      SessionManager
	allowDeletion bool
	logger        *zap.Logger
}

// NewMapFileHandler creates a new map file handler instance
func NewMapFileHandler(store storage.Store, sessions SessionManager, allowDeletion bool, logger *zap.Logger) MapFileHandler {
	return &MapFileHandlerImpl{
		store:         store,
		sessions:      sessions,
		allowDeletion: allowDeletion,
		logger:        logger,
	}
}

// HandleUploadMap accepts a map payload as multipart/form-data
func (h *MapFileHandlerImpl) HandleUploadMap(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save map", err)
	}
	if err := h.requireFormat(info); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleUploadMapBase64 accepts a map payload as base64 JSON
func (h *MapFileHandlerImpl) HandleUploadMapBase64(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	info, err := h.store.Save(req.Name, bytes.NewReader(decoded))
	if err != nil {
		return NewInternalError("failed to save map", err)
	}
	if err := h.requireFormat(info); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleUploadChunk accepts a single chunk of a chunked upload
// (multipart/form-data with uploadId, chunkIndex and file)
func (h *MapFileHandlerImpl) HandleUploadChunk(c echo.Context) error {
	uploadID := c.FormValue("uploadId")
	if uploadID == "" {
		return NewValidationError("uploadId")
	}
	index, err := strconv.Atoi(c.FormValue("chunkIndex"))
	if err != nil || index < 0 {
		return NewValidationError("chunkIndex")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no chunk provided", err)
	}
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open chunk", err)
	}
	defer src.Close()

	if err := h.store.SaveChunk(uploadID, index, src); err != nil {
		return NewBadRequestError("failed to save chunk", err)
	}
	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload assembles a chunked upload into a map file
func (h *MapFileHandlerImpl) HandleCompleteUpload(c echo.Context) error {
	var req completeUploadRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	info, err := h.store.CompleteChunkedUpload(req.UploadID, req.Name, req.TotalChunks)
	if err != nil {
		return NewBadRequestError("failed to complete upload", err)
	}
	if err := h.requireFormat(info); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, info)
}

// requireFormat drops files no decoder recognises.
func (h *MapFileHandlerImpl) requireFormat(info *models.MapFile) error {
	if info.Format != "" {
		return nil
	}
	if err := h.store.Delete(info.ID); err != nil {
		h.logger.Warn("failed to drop unrecognised upload", zap.String("map", info.ID), zap.Error(err))
	}
	return NewBadRequestError(fmt.Sprintf("%s is not a map payload", info.Name), parser.ErrUnknownFormat)
}

// HandleListMaps returns the most recently uploaded maps
func (h *MapFileHandlerImpl) HandleListMaps(c echo.Context) error {
	files, err := h.store.List(recentMapsLimit)
	if err != nil {
		return NewInternalError("failed to list maps", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetMap returns metadata for a specific map
func (h *MapFileHandlerImpl) HandleGetMap(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("map", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleRenameMap updates the display name of a map
func (h *MapFileHandlerImpl) HandleRenameMap(c echo.Context) error {
	id := c.Param("id")

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteMap deletes a map and closes the sessions showing it
func (h *MapFileHandlerImpl) HandleDeleteMap(c echo.Context) error {
	if !h.allowDeletion {
		return &APIError{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "map deletion is disabled"}
	}
	id := c.Param("id")
	if err := h.store.Delete(id); err != nil {
		return FromError(err)
	}
	if n := h.sessions.CloseSessionsForMap(id); n > 0 {
		h.logger.Info("closed sessions of deleted map", zap.String("map", id), zap.Int("sessions", n))
	}
	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

type completeUploadRequest struct {
	UploadID    string `json:"uploadId"`
	Name        string `json:"name"`
	TotalChunks int    `json:"totalChunks"`
}

func (r *completeUploadRequest) validate() error {
	if r.UploadID == "" {
		return NewValidationError("uploadId")
	}
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.TotalChunks <= 0 {
		return NewBadRequestError("totalChunks must be positive", nil)
	}
	return nil
}

type renameFileRequest struct {
	Name string `json:"name"`
}
