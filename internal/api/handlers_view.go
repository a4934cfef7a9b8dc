// handlers_view.go - Viewport, filter, outline and scene output handlers
package api

import (
	"bytes"
	"math"
	"net/http"
	"strconv"

	"github.com/agv-mapview/backend/internal/engine"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/labstack/echo/v4"
)

const (
	// MIMEApplicationMsgpack is the content type of msgpack responses.
	MIMEApplicationMsgpack = "application/msgpack"
	maxPreviewSize         = 4096
)

// ViewHandlerImpl implements the ViewHandler interface
type ViewHandlerImpl struct {
	sessions SessionManager
}

// NewViewHandler creates a new view handler instance
func NewViewHandler(sessions SessionManager) ViewHandler {
	return &ViewHandlerImpl{sessions: sessions}
}

// engineFor returns the engine of the session named in the path.
func engineFor(sessions SessionManager, c echo.Context) (*engine.MapEngine, error) {
	eng, err := sessions.Engine(c.Param("sessionId"))
	if err != nil {
		return nil, FromError(err)
	}
	return eng, nil
}

// HandleStats returns the engine counters of a session
func (h *ViewHandlerImpl) HandleStats(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eng.Stats())
}

// HandleScene returns the compiled draw commands as JSON
func (h *ViewHandlerImpl) HandleScene(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	data, err := render.DrawCommandsToJSON(eng.DrawCommands())
	if err != nil {
		return NewInternalError("failed to encode scene", err)
	}
	return c.JSONBlob(http.StatusOK, data)
}

// HandleSceneMsgpack returns the compiled draw commands as msgpack
func (h *ViewHandlerImpl) HandleSceneMsgpack(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	data, err := render.DrawCommandsToMsgpack(eng.DrawCommands())
	if err != nil {
		return NewInternalError("failed to encode scene", err)
	}
	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
}

// HandlePreview renders the scene to PNG (?width=&height=&background=)
func (h *ViewHandlerImpl) HandlePreview(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	width, err := sizeParam(c, "width")
	if err != nil {
		return err
	}
	height, err := sizeParam(c, "height")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	opts := render.RasterOptions{
		Width:      width,
		Height:     height,
		Background: c.QueryParam("background"),
		Padding:    16,
	}
	if err := eng.RenderPNG(&buf, opts); err != nil {
		return NewInternalError("failed to render preview", err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func sizeParam(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 || v > maxPreviewSize {
		return 0, NewValidationError(name)
	}
	return v, nil
}

type scaleRequest struct {
	Scale float64 `json:"scale"`
}

// HandleSetScale updates the zoom level
func (h *ViewHandlerImpl) HandleSetScale(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req scaleRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Scale <= 0 || math.IsInf(req.Scale, 0) || math.IsNaN(req.Scale) {
		return NewValidationError("scale")
	}
	return c.JSON(http.StatusOK, eng.SetScale(req.Scale))
}

type floorRequest struct {
	Floor int `json:"floor"`
}

// HandleSetFloor switches the displayed floor
func (h *ViewHandlerImpl) HandleSetFloor(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req floorRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.SetFloor(req.Floor)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleGetFilter returns the active park filter
func (h *ViewHandlerImpl) HandleGetFilter(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eng.CurrentFilter())
}

type filterRequest struct {
	engine.Filter
	// Debounce coalesces rapid filter edits; the response is 202 and the
	// last filter in the window wins.
	Debounce bool `json:"debounce"`
}

// HandleSetFilter applies a park filter
func (h *ViewHandlerImpl) HandleSetFilter(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Debounce {
		eng.SetFilter(req.Filter)
		return c.NoContent(http.StatusAccepted)
	}
	change, err := eng.ApplyFilter(req.Filter)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleGetOutline returns the edited outline
func (h *ViewHandlerImpl) HandleGetOutline(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	state, ok := eng.Outline()
	if !ok {
		return NewNotFoundError("outline", c.Param("sessionId"))
	}
	return c.JSON(http.StatusOK, state)
}

type outlineRequest struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// HandleEditOutline starts editing a rectangle
func (h *ViewHandlerImpl) HandleEditOutline(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req outlineRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	return c.JSON(http.StatusCreated, eng.EditOutline(req.Left, req.Top, req.Right, req.Bottom))
}

type edgeRequest struct {
	Value float64 `json:"value"`
}

type edgeResponse struct {
	Outline engine.OutlineState `json:"outline"`
	Changed bool                `json:"changed"`
}

// HandleSetOutlineEdge moves one edge of the outline
func (h *ViewHandlerImpl) HandleSetOutlineEdge(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	edge, ok := models.ParseEdge(c.Param("edge"))
	if !ok {
		return NewValidationError("edge")
	}
	var req edgeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if _, open := eng.Outline(); !open {
		return NewNotFoundError("outline", c.Param("sessionId"))
	}
	state, changed := eng.SetOutlineEdge(edge, req.Value)
	return c.JSON(http.StatusOK, edgeResponse{Outline: state, Changed: changed})
}

// HandleCloseOutline stops editing the outline
func (h *ViewHandlerImpl) HandleCloseOutline(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	eng.CloseOutline()
	return c.NoContent(http.StatusNoContent)
}
