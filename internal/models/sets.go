package models

import (
	"sort"

	"github.com/samber/lo"
)

// IDSet is an unordered set of entity keys.
type IDSet map[string]struct{}

// NewIDSet builds a set from keys.
func NewIDSet(keys ...string) IDSet {
	s := make(IDSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s IDSet) Add(key string) { s[key] = struct{}{} }

func (s IDSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	keys := lo.Keys(s)
	sort.Strings(keys)
	return keys
}

// Intersect returns the members present in both sets.
func (s IDSet) Intersect(other IDSet) IDSet {
	out := make(IDSet)
	for k := range s {
		if other.Has(k) {
			out.Add(k)
		}
	}
	return out
}

// RouteBinding is the two-way park/path mapping of one routing group.
type RouteBinding struct {
	ParkToPath map[string]string `msgpack:"parkToPath" json:"parkToPath"`
	PathToPark map[string]string `msgpack:"pathToPark" json:"pathToPark"`
}

// RouteIndex maps routing group -> park <-> reverse path.
type RouteIndex struct {
	Groups map[string]*RouteBinding `msgpack:"groups" json:"groups"`
}

// NewRouteIndex returns an empty index.
func NewRouteIndex() *RouteIndex {
	return &RouteIndex{Groups: make(map[string]*RouteBinding)}
}

// Bind records that pathID is the reverse path serving parkID within group.
func (r *RouteIndex) Bind(group, parkID, pathID string) {
	b, ok := r.Groups[group]
	if !ok {
		b = &RouteBinding{
			ParkToPath: make(map[string]string),
			PathToPark: make(map[string]string),
		}
		r.Groups[group] = b
	}
	b.ParkToPath[parkID] = pathID
	b.PathToPark[pathID] = parkID
}

// PathFor returns the reverse path serving parkID under group.
func (r *RouteIndex) PathFor(group, parkID string) (string, bool) {
	b, ok := r.Groups[group]
	if !ok {
		return "", false
	}
	id, ok := b.ParkToPath[parkID]
	return id, ok
}

// ParkFor returns the park served by pathID under group.
func (r *RouteIndex) ParkFor(group, pathID string) (string, bool) {
	b, ok := r.Groups[group]
	if !ok {
		return "", false
	}
	id, ok := b.PathToPark[pathID]
	return id, ok
}

// Classification set names.
const (
	SetParkTruck    = "park:truck"
	SetPathForward  = "path:forward"
	SetPathBackward = "path:backward"
	SetPathArc      = "path:arc"
)

// ParkTypeSet names the set of parks of type t.
func ParkTypeSet(t ParkType) string { return "park:type:" + t.String() }

// ParkModeSet names the set of parks with mode m.
func ParkModeSet(m ParkMode) string { return "park:mode:" + m.String() }

// ParkGroupSet names the set of parks in routing group g.
func ParkGroupSet(g string) string { return "park:group:" + g }

// PathGroupSet names the set of paths in routing group g.
func PathGroupSet(g string) string { return "path:group:" + g }
