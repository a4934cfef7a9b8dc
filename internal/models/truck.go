package models

import "time"

// TruckPosition is a snapshot of where a truck (mobile park carrier) is, in
// the AGV frame: metres and theta degrees.
type TruckPosition struct {
	TruckID     string    `json:"truckId" msgpack:"truckId"`
	X           float64   `json:"x" msgpack:"x"`
	Y           float64   `json:"y" msgpack:"y"`
	Theta       float64   `json:"theta" msgpack:"theta"`
	Timestamp   time.Time `json:"timestamp" msgpack:"timestamp"`
	TimestampMs int64     `json:"timestampMs" msgpack:"timestampMs"`
}

// ParkStatus is an inferred occupancy status shown as a tag on a park.
type ParkStatus string

const (
	ParkStatusEmpty    ParkStatus = "empty"
	ParkStatusOccupied ParkStatus = "occupied"
	ParkStatusLocked   ParkStatus = "locked"
	ParkStatusUnknown  ParkStatus = "unknown"
)

// Valid reports whether s is one of the known statuses.
func (s ParkStatus) Valid() bool {
	switch s {
	case ParkStatusEmpty, ParkStatusOccupied, ParkStatusLocked, ParkStatusUnknown:
		return true
	}
	return false
}
