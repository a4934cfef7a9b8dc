package models

import "time"

// MapFile represents metadata about an uploaded raw map payload.
type MapFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Format     string    `json:"format,omitempty"` // "json", "msgpack"
	UploadedAt time.Time `json:"uploadedAt"`
}
