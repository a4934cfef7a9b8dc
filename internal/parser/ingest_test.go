package parser

import (
	"math"
	"testing"

	"github.com/agv-mapview/backend/internal/geometry"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

const samplePayload = `{
  "Parks": [
    {"Id": 1, "M": 1, "T": "2", "G": "north", "L": 1.2, "W": 0.8, "BPI": "R1",
     "A": 1.5707963267948966, "X": 1, "Y": 2, "Name": "P1", "AL": "1,2"},
    {"Id": 2, "M": "0", "T": 0, "L": 1.2, "W": 0.8, "A": 0, "X": 3, "Y": 2, "Name": "P2", "TId": "T7"},
    {"Id": 3, "L": 1.2, "W": 0.8, "X": 5, "Y": 2}
  ],
  "Paths": [
    {"Id": 10, "BKI": "P1", "F": 0, "G": "north", "I": "R1",
     "P": [{"X": 1, "Y": 2, "R": 0}, {"X": 3, "Y": 2, "R": 0}]},
    {"Id": 11, "F": 1, "I": "M",
     "P": [{"X": 0, "Y": 0, "R": 0}, {"X": 1, "Y": 2, "R": 0}, {"X": 2, "Y": 3, "R": 1}]}
  ],
  "Marks": [{"Id": 5, "X": 0.5, "Y": 0.5, "W": 0.1, "H": 0.1}],
  "Lines": [{"Id": 6, "X1": 0, "Y1": 0, "X2": 1, "Y2": 0, "C": "#ff0000", "W": 2}],
  "Texts": [{"Id": 7, "X": 1, "Y": 1, "A": 0.5, "S": "Dock A", "C": "#ffffff", "Z": 14}]
}`

func ingestSample(t *testing.T) *models.MapTables {
	t.Helper()
	raw, format, err := GetGlobalRegistry().Decode([]byte(samplePayload))
	require.NoError(t, err)
	require.Equal(t, "json", format)

	in := NewIngester(geometry.NewFrame(100, 0, 0, 4), zaptest.NewLogger(t))
	tables, err := in.Ingest(raw)
	require.NoError(t, err)
	return tables
}

func TestIngestParks(t *testing.T) {
	tables := ingestSample(t)
	require.Len(t, tables.Parks, 3)

	p1 := tables.Parks["P1"]
	require.NotNil(t, p1)
	assert.Equal(t, 100.0, p1.X)
	assert.Equal(t, -200.0, p1.Y)
	assert.Equal(t, 80.0, p1.W)
	assert.Equal(t, 120.0, p1.L)
	assert.InDelta(t, 3*math.Pi/2, p1.Rotate, 1e-9)
	assert.Equal(t, models.ParkTypeCharging, p1.Type)
	assert.Equal(t, models.ParkModeDual, p1.Mode)
	assert.Equal(t, []int{1, 2}, p1.Layers)
	assert.Equal(t, []string{"R1"}, p1.BackPathIDs)
	assert.False(t, p1.IsTruck)

	p2 := tables.Parks["P2"]
	assert.True(t, p2.IsTruck)
	assert.Equal(t, "T7", p2.TruckID)

	// Unnamed parks are keyed by their raw id.
	_, ok := tables.Parks["3"]
	assert.True(t, ok)

	park, ok := tables.ParkForID(2)
	require.True(t, ok)
	assert.Equal(t, "P2", park.ParkID)
}

func TestIngestClassification(t *testing.T) {
	tables := ingestSample(t)

	assert.Equal(t, []string{"P1"}, tables.Sets[models.ParkTypeSet(models.ParkTypeCharging)])
	assert.Equal(t, []string{"3", "P2"}, tables.Sets[models.ParkTypeSet(models.ParkTypeNormal)])
	assert.Equal(t, []string{"P2"}, tables.Sets[models.SetParkTruck])
	assert.Equal(t, []string{"P1"}, tables.Sets[models.ParkGroupSet("north")])
	assert.Equal(t, []string{"R1"}, tables.Sets[models.SetPathBackward])
	assert.Equal(t, []string{"M.1", "M.2"}, tables.Sets[models.SetPathForward])
	assert.Equal(t, []string{"M.2"}, tables.Sets[models.SetPathArc])

	// Every park differs by type, mode or truck flag.
	assert.Len(t, tables.ShapeGroups, 3)
	var sizes []int
	for _, ids := range tables.ShapeGroups {
		sizes = append(sizes, len(ids))
	}
	assert.ElementsMatch(t, []int{1, 1, 1}, sizes)
}

func TestIngestPathsAndPoints(t *testing.T) {
	tables := ingestSample(t)
	require.Len(t, tables.Paths, 3)

	r1 := tables.Paths["R1"]
	assert.Equal(t, "P1", r1.ParkID)
	assert.Equal(t, 0.0, r1.Radius)
	assert.Equal(t, 300.0, r1.X2)

	m2 := tables.Paths["M.2"]
	assert.Equal(t, 100.0, m2.Radius)

	// (1,2) is both the start of R1 and the end of M.1.
	junction := tables.Points[models.PointKey(100, -200)]
	require.NotNil(t, junction)
	assert.ElementsMatch(t, []models.PathEnd{
		{PathID: "R1", Start: true},
		{PathID: "M.1", Start: false},
	}, junction.Ends)
	assert.Equal(t, float64(DefaultPointRadius), junction.Radius)

	pathID, ok := tables.Routes.PathFor("north", "P1")
	require.True(t, ok)
	assert.Equal(t, "R1", pathID)
}

func TestIngestShapes(t *testing.T) {
	tables := ingestSample(t)

	require.Len(t, tables.Marks, 1)
	assert.Equal(t, 50.0, tables.Marks[0].X)
	assert.Equal(t, -50.0, tables.Marks[0].Y)
	assert.Equal(t, 10.0, tables.Marks[0].W)

	require.Len(t, tables.Lines, 1)
	assert.Equal(t, 2.0, tables.Lines[0].Width)

	require.Len(t, tables.Texts, 1)
	assert.Equal(t, "Dock A", tables.Texts[0].Content)
	assert.InDelta(t, geometry.PiToAngle(0.5), tables.Texts[0].Angle, 1e-9)
}

func TestIngestSkipsMalformedRecords(t *testing.T) {
	raw := &models.RawMap{
		Parks: []models.RawRecord{
			{"Id": 1, "Name": "ok", "W": 1, "L": 1},
			{"Id": "not-a-number", "Name": "bad-id"},
			{"Id": 3, "Name": "bad-type", "T": "boat"},
			{"Id": 4, "Name": "ok"},
			{"Id": 1, "Name": "dup-id"},
			{"Name": "no-id-a"},
			{"Name": "no-id-b"},
		},
		Paths: []models.RawRecord{
			{"Id": 1, "I": "short", "P": []any{map[string]any{"X": 0, "Y": 0}}},
		},
	}
	in := NewIngester(geometry.NewFrame(100, 0, 0, 4), zaptest.NewLogger(t))
	tables, err := in.Ingest(raw)

	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	assert.ErrorContains(t, err, "duplicate id 1")
	assert.Len(t, tables.Parks, 2)
	assert.Contains(t, tables.Parks, "ok")
	assert.Contains(t, tables.Parks, "no-id-a")
	assert.Equal(t, "ok", tables.ParkByID[1])
	assert.Equal(t, "no-id-a", tables.ParkByID[0])
	assert.Empty(t, tables.Paths)
}

func TestFieldTableRename(t *testing.T) {
	out := MarkFields.Rename(map[string]any{"Id": 1, "X": 2, "Q": 3})
	assert.Equal(t, map[string]any{"id": 1, "x": 2}, out)
}

func defaultTestFrame() geometry.Frame {
	return geometry.NewFrame(100, 0, 0, 4)
}
