package parser

import (
	"fmt"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/go-viper/mapstructure/v2"
)

// FieldTable maps the short wire codes of one entity kind to the semantic
// names the record structs decode from. Wire codes can change here without
// touching ingest.
type FieldTable map[string]string

var (
	ParkFields = FieldTable{
		"Id":   "id",
		"M":    "mode",
		"T":    "type",
		"G":    "group",
		"L":    "length",
		"W":    "width",
		"BPI":  "backPathIds",
		"A":    "pi",
		"X":    "x",
		"Y":    "y",
		"Name": "name",
		"TId":  "truckId",
		"AL":   "layers",
	}
	PathFields = FieldTable{
		"Id":  "id",
		"BKI": "backParkId",
		"F":   "forward",
		"G":   "group",
		"I":   "pathId",
		"P":   "points",
	}
	PathPointFields = FieldTable{
		"X": "x",
		"Y": "y",
		"R": "radius",
	}
	MarkFields = FieldTable{
		"Id": "id",
		"X":  "x",
		"Y":  "y",
		"W":  "width",
		"H":  "height",
	}
	LineFields = FieldTable{
		"Id": "id",
		"X1": "x1",
		"Y1": "y1",
		"X2": "x2",
		"Y2": "y2",
		"C":  "color",
		"W":  "width",
	}
	TextFields = FieldTable{
		"Id": "id",
		"X":  "x",
		"Y":  "y",
		"A":  "pi",
		"S":  "content",
		"C":  "color",
		"Z":  "size",
	}
)

// Rename returns rec keyed by semantic names. Unknown codes are dropped.
func (ft FieldTable) Rename(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for code, v := range rec {
		if name, ok := ft[code]; ok {
			out[name] = v
		}
	}
	return out
}

type parkRecord struct {
	ID          int      `mapstructure:"id"`
	Mode        string   `mapstructure:"mode"`
	Type        string   `mapstructure:"type"`
	Group       string   `mapstructure:"group"`
	Length      float64  `mapstructure:"length"`
	Width       float64  `mapstructure:"width"`
	BackPathIDs []string `mapstructure:"backPathIds"`
	Pi          float64  `mapstructure:"pi"`
	X           float64  `mapstructure:"x"`
	Y           float64  `mapstructure:"y"`
	Name        string   `mapstructure:"name"`
	TruckID     string   `mapstructure:"truckId"`
	Layers      []int    `mapstructure:"layers"`
}

type pathPointRecord struct {
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Radius float64 `mapstructure:"radius"`
}

type pathRecord struct {
	ID         int               `mapstructure:"id"`
	BackParkID string            `mapstructure:"backParkId"`
	Forward    bool              `mapstructure:"forward"`
	Group      string            `mapstructure:"group"`
	PathID     string            `mapstructure:"pathId"`
	Points     []pathPointRecord `mapstructure:"points"`
}

type markRecord struct {
	ID     int     `mapstructure:"id"`
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

type lineRecord struct {
	ID    int     `mapstructure:"id"`
	X1    float64 `mapstructure:"x1"`
	Y1    float64 `mapstructure:"y1"`
	X2    float64 `mapstructure:"x2"`
	Y2    float64 `mapstructure:"y2"`
	Color string  `mapstructure:"color"`
	Width float64 `mapstructure:"width"`
}

type textRecord struct {
	ID      int     `mapstructure:"id"`
	X       float64 `mapstructure:"x"`
	Y       float64 `mapstructure:"y"`
	Pi      float64 `mapstructure:"pi"`
	Content string  `mapstructure:"content"`
	Color   string  `mapstructure:"color"`
	Size    float64 `mapstructure:"size"`
}

// decodeRecord renames rec through ft and decodes it into out. Input is
// weakly typed: designers emit numbers as strings, booleans as 0/1 and
// lists as comma-separated strings.
func decodeRecord(ft FieldTable, rec map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(ft.Rename(rec))
}

func decodePark(rec models.RawRecord) (parkRecord, error) {
	var r parkRecord
	if err := decodeRecord(ParkFields, rec, &r); err != nil {
		return r, fmt.Errorf("park record: %w", err)
	}
	return r, nil
}

func decodePath(rec models.RawRecord) (pathRecord, error) {
	var r pathRecord
	renamed := make(models.RawRecord, len(rec))
	for k, v := range rec {
		renamed[k] = v
	}
	if pts, ok := rec["P"].([]any); ok {
		points := make([]any, 0, len(pts))
		for i, p := range pts {
			m, ok := asRecord(p)
			if !ok {
				return r, fmt.Errorf("path record: point %d is %T", i, p)
			}
			points = append(points, PathPointFields.Rename(m))
		}
		renamed["P"] = points
	}
	if err := decodeRecord(PathFields, renamed, &r); err != nil {
		return r, fmt.Errorf("path record: %w", err)
	}
	return r, nil
}

func decodeMark(rec models.RawRecord) (markRecord, error) {
	var r markRecord
	if err := decodeRecord(MarkFields, rec, &r); err != nil {
		return r, fmt.Errorf("mark record: %w", err)
	}
	return r, nil
}

func decodeLine(rec models.RawRecord) (lineRecord, error) {
	var r lineRecord
	if err := decodeRecord(LineFields, rec, &r); err != nil {
		return r, fmt.Errorf("line record: %w", err)
	}
	return r, nil
}

func decodeText(rec models.RawRecord) (textRecord, error) {
	var r textRecord
	if err := decodeRecord(TextFields, rec, &r); err != nil {
		return r, fmt.Errorf("text record: %w", err)
	}
	return r, nil
}

func asRecord(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case models.RawRecord:
		return m, true
	}
	return nil, false
}
