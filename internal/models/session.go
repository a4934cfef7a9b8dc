package models

// SessionStatus represents the status of a map session.
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusLoading SessionStatus = "loading"
	SessionStatusReady   SessionStatus = "ready"
	SessionStatusError   SessionStatus = "error"
)

// MapSession is one map loaded into its own engine.
type MapSession struct {
	ID          string         `json:"id"`
	MapID       string         `json:"mapId"`
	Status      SessionStatus  `json:"status"`
	Progress    float64        `json:"progress"` // 0-100
	PayloadHash string         `json:"payloadHash,omitempty"`
	CacheHit    bool           `json:"cacheHit"`
	LoadTimeMs  int64          `json:"loadTimeMs,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NewMapSession creates a MapSession in pending status.
func NewMapSession(id, mapID string) *MapSession {
	return &MapSession{
		ID:     id,
		MapID:  mapID,
		Status: SessionStatusPending,
	}
}

// Done reports whether loading has finished, successfully or not.
func (s *MapSession) Done() bool {
	return s.Status == SessionStatusReady || s.Status == SessionStatusError
}
