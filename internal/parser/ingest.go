package parser

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultPointRadius is the nominal junction dot radius in screen units.
const DefaultPointRadius = 4

// Ingester normalises raw map records into entity tables. It converts
// metres to screen units, maps the AGV frame onto the screen frame,
// classifies entities into sets, derives park anchors and builds the
// route index. It never renders.
type Ingester struct {
	frame       geometry.Frame
	pointRadius float64
	intern      *StringIntern
	logger      *zap.Logger
}

// NewIngester creates an ingester for the given frame.
func NewIngester(frame geometry.Frame, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		frame:       frame,
		pointRadius: DefaultPointRadius,
		intern:      NewStringIntern(),
		logger:      logger.Named("parser"),
	}
}

// SetPointRadius overrides the junction dot radius stored on points.
func (in *Ingester) SetPointRadius(r float64) {
	if r > 0 {
		in.pointRadius = r
	}
}

// Frame returns the coordinate frame used for conversion.
func (in *Ingester) Frame() geometry.Frame {
	return in.frame
}

// Ingest builds tables from every well-formed record of raw. Rejected
// records are skipped; their errors are combined into the returned error,
// which is non-nil even though the tables are usable.
func (in *Ingester) Ingest(raw *models.RawMap) (*models.MapTables, error) {
	t := models.NewMapTables()
	var errs error
	for _, rec := range raw.Parks {
		errs = multierr.Append(errs, in.AddPark(t, rec))
	}
	for _, rec := range raw.Paths {
		errs = multierr.Append(errs, in.AddPath(t, rec))
	}
	for _, rec := range raw.Marks {
		errs = multierr.Append(errs, in.AddMark(t, rec))
	}
	for _, rec := range raw.Lines {
		errs = multierr.Append(errs, in.AddLine(t, rec))
	}
	for _, rec := range raw.Texts {
		errs = multierr.Append(errs, in.AddText(t, rec))
	}
	in.Finish(t)
	if errs != nil {
		in.logger.Warn("skipped malformed records",
			zap.Int("count", len(multierr.Errors(errs))),
			zap.Int("total", raw.Len()))
	}
	return t, errs
}

// Finish sorts the classification sets and shape groups so that tables
// built from the same payload are identical.
func (in *Ingester) Finish(t *models.MapTables) {
	for _, ids := range t.Sets {
		sort.Strings(ids)
	}
	for _, ids := range t.ShapeGroups {
		sort.Strings(ids)
	}
}

func (in *Ingester) screen(v float64) float64 {
	return geometry.Round(v, in.frame.Precision)
}

// AddPark ingests one park record into t.
func (in *Ingester) AddPark(t *models.MapTables, rec models.RawRecord) error {
	r, err := decodePark(rec)
	if err != nil {
		return err
	}
	key := r.Name
	if key == "" {
		key = strconv.Itoa(r.ID)
	}
	if _, dup := t.Parks[key]; dup {
		return fmt.Errorf("park %q: duplicate key", key)
	}
	if owner, dup := t.ParkByID[r.ID]; dup {
		return fmt.Errorf("park %q: duplicate id %d (owned by %q)", key, r.ID, owner)
	}
	typ, err := ParseParkTypeField(r.Type)
	if err != nil {
		return fmt.Errorf("park %q: %w", key, err)
	}
	mode, err := ParseParkModeField(r.Mode)
	if err != nil {
		return fmt.Errorf("park %q: %w", key, err)
	}

	p := &models.Park{
		ID:          r.ID,
		ParkID:      key,
		X:           in.screen(in.frame.AgvToScreenX(r.X)),
		Y:           in.screen(in.frame.AgvToScreenY(r.Y)),
		W:           in.screen(in.frame.Length(r.Width)),
		L:           in.screen(in.frame.Length(r.Length)),
		Pi:          geometry.NormalizePi(r.Pi),
		Rotate:      geometry.PiToRotate(r.Pi),
		Type:        typ,
		Mode:        mode,
		TruckID:     in.intern.Intern(r.TruckID),
		IsTruck:     r.TruckID != "",
		Layers:      r.Layers,
		BackPathIDs: r.BackPathIDs,
		Information: in.intern.Intern(r.Group),
	}
	p.UpdateAnchors()

	t.Parks[key] = p
	t.ParkByID[r.ID] = key
	addToSet(t, models.ParkTypeSet(typ), key)
	addToSet(t, models.ParkModeSet(mode), key)
	if p.IsTruck {
		addToSet(t, models.SetParkTruck, key)
	}
	if p.Information != "" {
		addToSet(t, models.ParkGroupSet(p.Information), key)
		for _, pathID := range p.BackPathIDs {
			t.Routes.Bind(p.Information, key, pathID)
		}
	}
	shape := p.ShapeKey(false)
	t.ShapeGroups[shape] = append(t.ShapeGroups[shape], key)
	return nil
}

// AddPath ingests one path record. A record with n points yields n-1
// segments, each taking the radius of its second point. Single-segment
// records keep the record key; longer ones suffix it with the segment
// number.
func (in *Ingester) AddPath(t *models.MapTables, rec models.RawRecord) error {
	r, err := decodePath(rec)
	if err != nil {
		return err
	}
	key := r.PathID
	if key == "" {
		key = strconv.Itoa(r.ID)
	}
	if len(r.Points) < 2 {
		return fmt.Errorf("path %q: need at least 2 points, got %d", key, len(r.Points))
	}
	group := in.intern.Intern(r.Group)
	segments := len(r.Points) - 1

	var errs error
	for i := 0; i < segments; i++ {
		a, b := r.Points[i], r.Points[i+1]
		id := key
		if segments > 1 {
			id = key + "." + strconv.Itoa(i+1)
		}
		if _, dup := t.Paths[id]; dup {
			errs = multierr.Append(errs, fmt.Errorf("path %q: duplicate key", id))
			continue
		}
		p := &models.AGVPath{
			ID:          r.ID,
			PathID:      id,
			ParkID:      r.BackParkID,
			X1:          in.screen(in.frame.AgvToScreenX(a.X)),
			Y1:          in.screen(in.frame.AgvToScreenY(a.Y)),
			X2:          in.screen(in.frame.AgvToScreenX(b.X)),
			Y2:          in.screen(in.frame.AgvToScreenY(b.Y)),
			Radius:      in.screen(in.frame.Length(b.Radius)),
			Forward:     r.Forward,
			Information: group,
		}
		t.Paths[id] = p
		in.addPoint(t, p.X1, p.Y1, models.PathEnd{PathID: id, Start: true})
		in.addPoint(t, p.X2, p.Y2, models.PathEnd{PathID: id, Start: false})

		if p.Forward {
			addToSet(t, models.SetPathForward, id)
		} else {
			addToSet(t, models.SetPathBackward, id)
		}
		if p.Radius != 0 {
			addToSet(t, models.SetPathArc, id)
		}
		if group != "" {
			addToSet(t, models.PathGroupSet(group), id)
			if p.ParkID != "" {
				t.Routes.Bind(group, p.ParkID, id)
			}
		}
	}
	return errs
}

func (in *Ingester) addPoint(t *models.MapTables, x, y float64, end models.PathEnd) {
	key := models.PointKey(x, y)
	pt, ok := t.Points[key]
	if !ok {
		pt = &models.AGVPathPoint{Key: key, X: x, Y: y, Radius: in.pointRadius}
		t.Points[key] = pt
	}
	pt.Ends = append(pt.Ends, end)
}

// AddMark ingests one QR marker record.
func (in *Ingester) AddMark(t *models.MapTables, rec models.RawRecord) error {
	r, err := decodeMark(rec)
	if err != nil {
		return err
	}
	t.Marks = append(t.Marks, &models.Mark{
		ID:     r.ID,
		MarkID: strconv.Itoa(r.ID),
		X:      in.screen(in.frame.AgvToScreenX(r.X)),
		Y:      in.screen(in.frame.AgvToScreenY(r.Y)),
		W:      in.screen(in.frame.Length(r.Width)),
		H:      in.screen(in.frame.Length(r.Height)),
	})
	return nil
}

// AddLine ingests one line record. The width is a stroke width in screen
// units and is not scaled.
func (in *Ingester) AddLine(t *models.MapTables, rec models.RawRecord) error {
	r, err := decodeLine(rec)
	if err != nil {
		return err
	}
	t.Lines = append(t.Lines, &models.LineShape{
		ID:    r.ID,
		X1:    in.screen(in.frame.AgvToScreenX(r.X1)),
		Y1:    in.screen(in.frame.AgvToScreenY(r.Y1)),
		X2:    in.screen(in.frame.AgvToScreenX(r.X2)),
		Y2:    in.screen(in.frame.AgvToScreenY(r.Y2)),
		Color: in.intern.Intern(r.Color),
		Width: r.Width,
	})
	return nil
}

// AddText ingests one label record. The angle arrives in the pi convention
// and is stored as screen degrees.
func (in *Ingester) AddText(t *models.MapTables, rec models.RawRecord) error {
	r, err := decodeText(rec)
	if err != nil {
		return err
	}
	t.Texts = append(t.Texts, &models.Text{
		ID:      r.ID,
		X:       in.screen(in.frame.AgvToScreenX(r.X)),
		Y:       in.screen(in.frame.AgvToScreenY(r.Y)),
		Angle:   geometry.PiToAngle(r.Pi),
		Content: r.Content,
		Color:   in.intern.Intern(r.Color),
		Size:    r.Size,
	})
	return nil
}

// ParseParkTypeField parses a park type, treating an absent value as
// Normal.
func ParseParkTypeField(s string) (models.ParkType, error) {
	if s == "" {
		return models.ParkTypeNormal, nil
	}
	return models.ParseParkType(s)
}

// ParseParkModeField parses a park mode, treating an absent value as
// SingleDirection.
func ParseParkModeField(s string) (models.ParkMode, error) {
	if s == "" {
		return models.ParkModeSingle, nil
	}
	return models.ParseParkMode(s)
}

func addToSet(t *models.MapTables, name, key string) {
	t.Sets[name] = append(t.Sets[name], key)
}
