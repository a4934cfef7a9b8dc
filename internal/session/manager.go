package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/agv-mapview/backend/internal/engine"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxSessions limits concurrently loaded maps to prevent memory exhaustion
const MaxSessions = 10

// SessionMaxAge is how long to keep idle sessions before cleanup
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotReady = errors.New("session not ready")
	ErrTooManySessions = errors.New("too many active sessions")
)

// Options configures a Manager. Zero values take defaults.
type Options struct {
	// Engine is the template for every session's engine. Its Cache and
	// Registry are shared between sessions.
	Engine      engine.Options
	MaxSessions int
	Clock       clock.Clock
	Logger      *zap.Logger
}

// Manager owns the loaded map sessions, one engine per session.
type Manager struct {
	opts   Options
	clock  clock.Clock
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*SessionState
	wg       sync.WaitGroup
}

// SessionState holds the session metadata and its engine.
type SessionState struct {
	Session      *models.MapSession
	Engine       *engine.MapEngine
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
	cancel       context.CancelFunc
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = MaxSessions
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}
	return &Manager{
		opts:     opts,
		clock:    opts.Clock,
		logger:   opts.Logger.Named("session"),
		sessions: make(map[string]*SessionState),
	}
}

// StartSession begins loading the map payload at filePath in the background.
func (m *Manager) StartSession(mapID, filePath string) (*models.MapSession, error) {
	return m.start(mapID, func() ([]byte, error) {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("reading map file: %w", err)
		}
		return data, nil
	})
}

// StartSessionFromBytes begins loading an in-memory payload.
func (m *Manager) StartSessionFromBytes(mapID string, payload []byte) (*models.MapSession, error) {
	return m.start(mapID, func() ([]byte, error) { return payload, nil })
}

func (m *Manager) start(mapID string, read func() ([]byte, error)) (*models.MapSession, error) {
	// Clean up old sessions if at limit
	m.cleanupOldSessionsIfNeeded()

	m.mu.Lock()
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, m.opts.MaxSessions)
	}
	sessionID := uuid.New().String()
	sess := models.NewMapSession(sessionID, mapID)
	sess.Status = models.SessionStatusLoading

	ctx, cancel := context.WithCancel(context.Background())
	state := &SessionState{
		Session:      sess,
		Engine:       engine.New(m.opts.Engine),
		LastAccessed: m.clock.Now(),
		cancel:       cancel,
	}
	m.sessions[sessionID] = state
	snapshot := *sess
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runLoad(ctx, sessionID, state.Engine, read)

	return &snapshot, nil
}

func (m *Manager) runLoad(ctx context.Context, sessionID string, eng *engine.MapEngine, read func() ([]byte, error)) {
	defer m.wg.Done()
	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("load panicked", zap.String("session", shortID(sessionID)), zap.Any("panic", r))
			m.updateSessionError(sessionID, fmt.Sprintf("load panicked: %v", r))
		}
	}()

	start := m.clock.Now()
	payload, err := read()
	if err != nil {
		m.logger.Error("load failed", zap.String("session", shortID(sessionID)), zap.Error(err))
		m.updateSessionError(sessionID, err.Error())
		return
	}
	m.setProgress(sessionID, 10)

	res, err := eng.Load(ctx, payload)
	if err != nil {
		m.logger.Error("load failed", zap.String("session", shortID(sessionID)), zap.Error(err))
		m.updateSessionError(sessionID, err.Error())
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	s := state.Session
	s.Status = models.SessionStatusReady
	s.Progress = 100
	s.PayloadHash = res.Hash
	s.CacheHit = res.CacheHit
	s.Counts = res.Counts
	s.LoadTimeMs = m.clock.Since(start).Milliseconds()

	m.logger.Info("map loaded",
		zap.String("session", shortID(sessionID)),
		zap.String("map", s.MapID),
		zap.Bool("cacheHit", res.CacheHit),
		zap.Int("skipped", res.Skipped),
		zap.Duration("took", res.Duration))
}

func (m *Manager) setProgress(sessionID string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.sessions[sessionID]; ok {
		state.Session.Progress = progress
	}
}

func (m *Manager) updateSessionError(sessionID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.Session.Status = models.SessionStatusError
	state.Session.Error = reason
}

// GetSession returns a copy of a session's metadata.
func (m *Manager) GetSession(id string) (*models.MapSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s := *state.Session
	return &s, true
}

// ListSessions returns every session, most recently used first.
func (m *Manager) ListSessions() []*models.MapSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	states := make([]*SessionState, 0, len(m.sessions))
	for _, st := range m.sessions {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].LastAccessed.After(states[j].LastAccessed)
	})
	list := make([]*models.MapSession, len(states))
	for i, st := range states {
		s := *st.Session
		list[i] = &s
	}
	return list
}

// Engine returns the engine of a ready session and marks it as used.
func (m *Manager) Engine(id string) (*engine.MapEngine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if state.Session.Status != models.SessionStatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotReady, id, state.Session.Status)
	}
	state.LastAccessed = m.clock.Now()
	return state.Engine, nil
}

// TouchSession updates the LastAccessed timestamp for a session.
// This should be called whenever a session is actively being used
// to prevent it from being cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = m.clock.Now()
	return true
}

// CloseSession cancels a pending load and releases the session's engine.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.release(state)
	return nil
}

// CloseSessionsForMap closes every session showing mapID and returns how
// many were closed.
func (m *Manager) CloseSessionsForMap(mapID string) int {
	m.mu.Lock()
	var closing []*SessionState
	for id, state := range m.sessions {
		if state.Session.MapID == mapID {
			closing = append(closing, state)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, state := range closing {
		m.release(state)
	}
	return len(closing)
}

func (m *Manager) release(state *SessionState) {
	state.cancel()
	state.Engine.Close()
}

// cleanupOldSessionsIfNeeded removes the least recently used finished
// sessions when at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	if len(m.sessions) < m.opts.MaxSessions {
		m.mu.Unlock()
		return
	}

	var candidates []*SessionState
	for _, state := range m.sessions {
		if state.Session.Done() {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	if toFree > len(candidates) {
		toFree = len(candidates)
	}
	evicted := candidates[:toFree]
	for _, state := range evicted {
		delete(m.sessions, state.Session.ID)
	}
	m.mu.Unlock()

	for _, state := range evicted {
		m.release(state)
		m.logger.Info("evicted session to free memory", zap.String("session", shortID(state.Session.ID)))
	}
}

// CleanupOldSessions removes finished sessions idle for longer than maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
// It returns how many sessions were removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := m.clock.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	m.mu.Lock()
	var expired []*SessionState
	for id, state := range m.sessions {
		// Only clean up finished sessions
		if !state.Session.Done() {
			continue
		}
		// Don't clean up sessions that are actively being used
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			expired = append(expired, state)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, state := range expired {
		m.release(state)
		m.logger.Info("cleaned up aged session",
			zap.String("session", shortID(state.Session.ID)),
			zap.Duration("idle", now.Sub(state.LastAccessed).Round(time.Second)))
	}
	return len(expired)
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}

// Close releases every session and waits for pending loads to stop.
func (m *Manager) Close() {
	m.mu.Lock()
	states := make([]*SessionState, 0, len(m.sessions))
	for id, state := range m.sessions {
		states = append(states, state)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, state := range states {
		state.cancel()
	}
	m.wg.Wait()
	for _, state := range states {
		state.Engine.Close()
	}
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
