// Package models contains the entity tables and value types of a warehouse map.
package models

// RawRecord is one flat wire-format record keyed by short field codes
// ("Id", "M", "T", ...).
type RawRecord map[string]any

// RawMap is the raw map payload as delivered by the map designer. Each
// entity kind is a flat list of records; coordinates are metres in the AGV
// frame and angles use the pi convention.
type RawMap struct {
	Parks []RawRecord `json:"Parks" msgpack:"Parks"`
	Paths []RawRecord `json:"Paths" msgpack:"Paths"`
	Marks []RawRecord `json:"Marks" msgpack:"Marks"`
	Lines []RawRecord `json:"Lines" msgpack:"Lines"`
	Texts []RawRecord `json:"Texts" msgpack:"Texts"`
}

// Len returns the total number of raw records.
func (m *RawMap) Len() int {
	return len(m.Parks) + len(m.Paths) + len(m.Marks) + len(m.Lines) + len(m.Texts)
}

// MapTables is the processed, render-ready form of a map: the canonical
// entity tables, the classification sets and the route index. It is exactly
// what the snapshot cache persists.
type MapTables struct {
	Parks  map[string]*Park         `msgpack:"parks"`
	Paths  map[string]*AGVPath      `msgpack:"paths"`
	Points map[string]*AGVPathPoint `msgpack:"points"`
	Marks  []*Mark                  `msgpack:"marks"`
	Lines  []*LineShape             `msgpack:"lines"`
	Texts  []*Text                  `msgpack:"texts"`

	// ParkByID resolves a raw layer-1 park id to its park key.
	ParkByID map[int]string `msgpack:"parkById"`

	// Sets holds the classification sets, e.g. "park:type:charging".
	Sets map[string][]string `msgpack:"sets"`

	// ShapeGroups groups park keys by their unselected shape key.
	ShapeGroups map[string][]string `msgpack:"shapeGroups"`

	Routes *RouteIndex `msgpack:"routes"`
}

// NewMapTables returns empty, initialised tables.
func NewMapTables() *MapTables {
	return &MapTables{
		Parks:       make(map[string]*Park),
		Paths:       make(map[string]*AGVPath),
		Points:      make(map[string]*AGVPathPoint),
		ParkByID:    make(map[int]string),
		Sets:        make(map[string][]string),
		ShapeGroups: make(map[string][]string),
		Routes:      NewRouteIndex(),
	}
}

// Set returns the members of a classification set as an IDSet.
func (t *MapTables) Set(name string) IDSet {
	return NewIDSet(t.Sets[name]...)
}

// ParkForID resolves a raw layer-1 id to its park.
func (t *MapTables) ParkForID(id int) (*Park, bool) {
	key, ok := t.ParkByID[id]
	if !ok {
		return nil, false
	}
	p, ok := t.Parks[key]
	return p, ok
}

// Counts summarises the table sizes.
func (t *MapTables) Counts() map[string]int {
	return map[string]int{
		"parks":  len(t.Parks),
		"paths":  len(t.Paths),
		"points": len(t.Points),
		"marks":  len(t.Marks),
		"lines":  len(t.Lines),
		"texts":  len(t.Texts),
		"shapes": len(t.ShapeGroups),
	}
}
