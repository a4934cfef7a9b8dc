package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agv-mapview/backend/internal/engine"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/snapshot"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPayload = `{
  "Parks": [
    {"Id": 1, "L": 1.2, "W": 0.8, "X": 1, "Y": 2, "Name": "P1"},
    {"Id": 2, "L": 1.2, "W": 0.8, "X": 3, "Y": 2, "Name": "P2"}
  ],
  "Paths": [
    {"Id": 10, "F": 1, "I": "R1", "P": [{"X": 1, "Y": 2, "R": 0}, {"X": 3, "Y": 2, "R": 0}]}
  ]
}`

func newTestManager(t *testing.T, mock *clock.Mock) *Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts := Options{
		Engine: engine.Options{
			Cache:  snapshot.NewCache(snapshot.NewMemoryStore(), snapshot.DefaultVersion, logger),
			Logger: logger,
		},
		MaxSessions: 3,
		Logger:      logger,
	}
	if mock != nil {
		opts.Clock = mock
	}
	m := NewManager(opts)
	t.Cleanup(m.Close)
	return m
}

func waitReady(t *testing.T, m *Manager, id string) *models.MapSession {
	t.Helper()
	require.Eventually(t, func() bool {
		s, ok := m.GetSession(id)
		return ok && s.Done()
	}, 2*time.Second, 5*time.Millisecond)
	s, _ := m.GetSession(id)
	return s
}

func TestSessionLoadsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	require.NoError(t, os.WriteFile(path, []byte(testPayload), 0644))

	m := newTestManager(t, nil)
	sess, err := m.StartSession("map-1", path)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusLoading, sess.Status)
	assert.Equal(t, "map-1", sess.MapID)

	s := waitReady(t, m, sess.ID)
	require.Equal(t, models.SessionStatusReady, s.Status, s.Error)
	assert.Equal(t, 100.0, s.Progress)
	assert.Equal(t, 2, s.Counts["parks"])
	assert.NotEmpty(t, s.PayloadHash)
	assert.False(t, s.CacheHit)

	eng, err := m.Engine(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, eng.VisibleParks())
}

func TestSecondSessionHitsSnapshot(t *testing.T) {
	m := newTestManager(t, nil)

	first, err := m.StartSessionFromBytes("map-1", []byte(testPayload))
	require.NoError(t, err)
	waitReady(t, m, first.ID)

	second, err := m.StartSessionFromBytes("map-1", []byte(testPayload))
	require.NoError(t, err)
	s := waitReady(t, m, second.ID)
	assert.True(t, s.CacheHit)
}

func TestSessionLoadError(t *testing.T) {
	m := newTestManager(t, nil)

	sess, err := m.StartSession("map-1", filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	s := waitReady(t, m, sess.ID)
	assert.Equal(t, models.SessionStatusError, s.Status)
	assert.Contains(t, s.Error, "reading map file")

	_, err = m.Engine(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotReady)

	sess, err = m.StartSessionFromBytes("map-2", []byte("not a map"))
	require.NoError(t, err)
	s = waitReady(t, m, sess.ID)
	assert.Equal(t, models.SessionStatusError, s.Status)
}

func TestSessionNotFound(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.Engine("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.CloseSession("nope"), ErrSessionNotFound)
	assert.False(t, m.TouchSession("nope"))
	_, ok := m.GetSession("nope")
	assert.False(t, ok)
}

func TestCloseSessionsForMap(t *testing.T) {
	m := newTestManager(t, nil)

	a, _ := m.StartSessionFromBytes("map-1", []byte(testPayload))
	b, _ := m.StartSessionFromBytes("map-1", []byte(testPayload))
	c, _ := m.StartSessionFromBytes("map-2", []byte(testPayload))
	for _, s := range []*models.MapSession{a, b, c} {
		waitReady(t, m, s.ID)
	}

	assert.Equal(t, 2, m.CloseSessionsForMap("map-1"))
	list := m.ListSessions()
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestCleanupKeepsActiveSessions(t *testing.T) {
	mock := clock.NewMock()
	m := newTestManager(t, mock)

	idle, _ := m.StartSessionFromBytes("map-1", []byte(testPayload))
	active, _ := m.StartSessionFromBytes("map-2", []byte(testPayload))
	waitReady(t, m, idle.ID)
	waitReady(t, m, active.ID)

	mock.Add(SessionMaxAge + time.Minute)
	assert.True(t, m.TouchSession(active.ID))

	assert.Equal(t, 1, m.CleanupOldSessions(SessionMaxAge))
	_, ok := m.GetSession(idle.ID)
	assert.False(t, ok)
	_, ok = m.GetSession(active.ID)
	assert.True(t, ok)
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	mock := clock.NewMock()
	m := newTestManager(t, mock)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.StartSessionFromBytes("map", []byte(testPayload))
		require.NoError(t, err)
		waitReady(t, m, s.ID)
		ids = append(ids, s.ID)
		mock.Add(time.Second)
	}
	// The oldest session becomes the most recently used.
	m.TouchSession(ids[0])

	_, err := m.StartSessionFromBytes("map", []byte(testPayload))
	require.NoError(t, err)

	_, ok := m.GetSession(ids[1])
	assert.False(t, ok)
	_, ok = m.GetSession(ids[0])
	assert.True(t, ok)
}
