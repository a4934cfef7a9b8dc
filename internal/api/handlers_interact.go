// handlers_interact.go - Selection, park overlay and path overlay handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/render"
	"github.com/labstack/echo/v4"
)

// InteractionHandlerImpl implements the InteractionHandler interface
type InteractionHandlerImpl struct {
	sessions SessionManager
}

// NewInteractionHandler creates a new interaction handler instance
func NewInteractionHandler(sessions SessionManager) InteractionHandler {
	return &InteractionHandlerImpl{sessions: sessions}
}

type idsRequest struct {
	IDs []int `json:"ids"`
}

type tagsRequest struct {
	Tags map[int]string `json:"tags"`
}

type statusesRequest struct {
	Statuses map[int]models.ParkStatus `json:"statuses"`
}

type overlayRequest struct {
	PathIDs []string `json:"pathIds"`
}

type travelRequest struct {
	Travel string `json:"travel"`
}

func parkIDParam(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("parkId"))
	if err != nil {
		return 0, NewValidationError("parkId")
	}
	return id, nil
}

// HandleVisibleParks returns the displayed ids of the visible parks
func (h *InteractionHandlerImpl) HandleVisibleParks(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eng.VisibleParks())
}

// HandleParksAt hit-tests the visible parks at a screen point (?x=&y=)
func (h *InteractionHandlerImpl) HandleParksAt(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var x, y float64
	if err := echo.QueryParamsBinder(c).
		MustFloat64("x", &x).
		MustFloat64("y", &y).
		BindError(); err != nil {
		return NewBadRequestError("x and y are required numbers", err)
	}
	ids, err := eng.ParksAt(x, y)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, ids)
}

// HandleGetPark returns one park by displayed id
func (h *InteractionHandlerImpl) HandleGetPark(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	id, err := parkIDParam(c)
	if err != nil {
		return err
	}
	park, ok := eng.Park(id)
	if !ok {
		return NewNotFoundError("park", c.Param("parkId"))
	}
	return c.JSON(http.StatusOK, park)
}

// HandleGetSelection returns the selected parks
func (h *InteractionHandlerImpl) HandleGetSelection(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eng.Selection())
}

// HandleSetSelection replaces the selection
func (h *InteractionHandlerImpl) HandleSetSelection(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.SelectParks(req.IDs)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleSelectPark adds one park to the selection
func (h *InteractionHandlerImpl) HandleSelectPark(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	id, err := parkIDParam(c)
	if err != nil {
		return err
	}
	change, err := eng.SelectPark(id)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleDeselectPark removes one park from the selection
func (h *InteractionHandlerImpl) HandleDeselectPark(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	id, err := parkIDParam(c)
	if err != nil {
		return err
	}
	change, err := eng.DeselectPark(id)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleClearSelection empties the selection
func (h *InteractionHandlerImpl) HandleClearSelection(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	change, err := eng.ClearSelection()
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleSetCandidates marks candidate parks
func (h *InteractionHandlerImpl) HandleSetCandidates(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.MarkCandidates(req.IDs)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleSetStock marks occupied parks
func (h *InteractionHandlerImpl) HandleSetStock(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req idsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.SetStock(req.IDs)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleSetTags replaces the numeric park tags
func (h *InteractionHandlerImpl) HandleSetTags(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req tagsRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.SetTags(req.Tags)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleSetStatuses replaces the inferred park status tags
func (h *InteractionHandlerImpl) HandleSetStatuses(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req statusesRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.SetStatusTags(req.Statuses)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleGetOverlay returns the paths of one overlay
func (h *InteractionHandlerImpl) HandleGetOverlay(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	kind := render.OverlayKind(c.Param("kind"))
	if !kind.Valid() {
		return NewValidationError("kind")
	}
	return c.JSON(http.StatusOK, eng.PathOverlay(kind))
}

// HandleSetOverlay replaces the paths of one overlay
func (h *InteractionHandlerImpl) HandleSetOverlay(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req overlayRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.SetPathOverlay(render.OverlayKind(c.Param("kind")), req.PathIDs)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleMoveTruck relocates the parks carried by a truck
func (h *InteractionHandlerImpl) HandleMoveTruck(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var pos models.TruckPosition
	if err := c.Bind(&pos); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if pos.TruckID == "" {
		return NewValidationError("truckId")
	}
	change, err := eng.MoveTruck(pos)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}

// HandleShowTravel highlights the paths of an AGV travel string
func (h *InteractionHandlerImpl) HandleShowTravel(c echo.Context) error {
	eng, err := engineFor(h.sessions, c)
	if err != nil {
		return err
	}
	var req travelRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	change, err := eng.ShowTravel(req.Travel)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, change)
}
