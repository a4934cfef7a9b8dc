package snapshot

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// DefaultVersion is the schema version of stored records. Any bump
	// invalidates every stored snapshot.
	DefaultVersion = "1.0.0"

	// RegistryKey holds the version registry: the epoch version and every
	// snapshot key written under it.
	RegistryKey = "snapshot:registry"

	keyPrefix = "snapshot:"
)

// Registry is the version registry record.
type Registry struct {
	Version string   `msgpack:"version" json:"version"`
	Keys    []string `msgpack:"keys" json:"keys"`
}

// Record is one stored snapshot.
type Record struct {
	Version   string            `msgpack:"version"`
	Hash      string            `msgpack:"hash"`
	CreatedAt time.Time         `msgpack:"createdAt"`
	Tables    *models.MapTables `msgpack:"tables"`
}

// Stats counts cache activity since construction.
type Stats struct {
	Hits         int    `json:"hits"`
	Misses       int    `json:"misses"`
	Writes       int    `json:"writes"`
	Purged       int    `json:"purged"`
	DecodeErrors int    `json:"decodeErrors"`
	Version      string `json:"version"`
}

// Hash returns the content hash of a raw payload.
func Hash(payload []byte) string {
	sum := xxh3.Hash128(payload).Bytes()
	return hex.EncodeToString(sum[:])
}

// Key returns the store key of the snapshot for hash.
func Key(hash string) string {
	return keyPrefix + hash
}

// Cache is the content-addressed snapshot cache. Every operation first
// checks the registry epoch: a version mismatch purges all snapshots
// recorded under the old epoch before anything else happens.
type Cache struct {
	store   Store
	version string
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewCache creates a cache over store for schema version.
func NewCache(store Store, version string, logger *zap.Logger) *Cache {
	if version == "" {
		version = DefaultVersion
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:   store,
		version: version,
		logger:  logger.Named("snapshot"),
		now:     time.Now,
	}
}

// Version returns the current schema version.
func (c *Cache) Version() string { return c.version }

// Stats returns the activity counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stats
	st.Version = c.version
	return st
}

// Validate brings the registry to the current epoch and returns how many
// snapshots were purged.
func (c *Cache) Validate(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked(ctx)
}

// Load returns the stored tables for hash. Any failure is logged and
// reported as a miss.
func (c *Cache) Load(ctx context.Context, hash string) (*models.MapTables, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.validateLocked(ctx); err != nil {
		c.logger.Warn("snapshot validation failed", zap.Error(err))
	}

	data, ok, err := c.store.Get(ctx, Key(hash))
	if err != nil {
		c.logger.Warn("snapshot read failed", zap.String("hash", hash), zap.Error(err))
		c.stats.Misses++
		return nil, false
	}
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil || rec.Tables == nil {
		if err == nil {
			err = fmt.Errorf("record has no tables")
		}
		c.logger.Warn("snapshot decode failed, falling back to ingest",
			zap.String("hash", hash), zap.Error(err))
		c.stats.DecodeErrors++
		c.stats.Misses++
		if rmErr := c.store.Remove(ctx, Key(hash)); rmErr != nil {
			c.logger.Warn("failed to drop corrupt snapshot", zap.Error(rmErr))
		}
		return nil, false
	}
	if rec.Version != c.version {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return rec.Tables, true
}

// Save stores tables under hash and records the key in the registry.
func (c *Cache) Save(ctx context.Context, hash string, tables *models.MapTables) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.validateLocked(ctx); err != nil {
		return err
	}
	data, err := msgpack.Marshal(&Record{
		Version:   c.version,
		Hash:      hash,
		CreatedAt: c.now().UTC(),
		Tables:    tables,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.store.Set(ctx, Key(hash), data); err != nil {
		return err
	}

	reg, err := c.readRegistry(ctx)
	if err != nil {
		return err
	}
	if reg == nil {
		reg = &Registry{Version: c.version}
	}
	if !lo.Contains(reg.Keys, Key(hash)) {
		reg.Keys = append(reg.Keys, Key(hash))
	}
	if err := c.writeRegistry(ctx, reg); err != nil {
		return err
	}
	c.stats.Writes++
	return nil
}

// Invalidate removes the snapshot for hash.
func (c *Cache) Invalidate(ctx context.Context, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Remove(ctx, Key(hash)); err != nil {
		return err
	}
	reg, err := c.readRegistry(ctx)
	if err != nil || reg == nil {
		return err
	}
	reg.Keys = lo.Without(reg.Keys, Key(hash))
	return c.writeRegistry(ctx, reg)
}

// Keys returns the snapshot keys recorded under the current epoch.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, err := c.readRegistry(ctx)
	if err != nil || reg == nil || reg.Version != c.version {
		return nil, err
	}
	return append([]string(nil), reg.Keys...), nil
}

func (c *Cache) validateLocked(ctx context.Context) (int, error) {
	reg, err := c.readRegistry(ctx)
	if err != nil {
		c.logger.Warn("snapshot registry unreadable, purging namespace", zap.Error(err))
		return c.purgeNamespaceLocked(ctx)
	}
	if reg == nil {
		return 0, c.writeRegistry(ctx, &Registry{Version: c.version})
	}
	if reg.Version == c.version {
		return 0, nil
	}

	var errs error
	for _, key := range reg.Keys {
		errs = multierr.Append(errs, c.store.Remove(ctx, key))
	}
	errs = multierr.Append(errs, c.writeRegistry(ctx, &Registry{Version: c.version}))
	c.stats.Purged += len(reg.Keys)
	c.logger.Info("snapshot epoch changed, purged cache",
		zap.String("from", reg.Version),
		zap.String("to", c.version),
		zap.Int("purged", len(reg.Keys)))
	return len(reg.Keys), errs
}

// purgeNamespaceLocked removes every snapshot key when the registry cannot
// say which ones belong to the old epoch, then starts a fresh registry.
func (c *Cache) purgeNamespaceLocked(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}
	keys = lo.Without(keys, RegistryKey)
	var errs error
	for _, key := range keys {
		errs = multierr.Append(errs, c.store.Remove(ctx, key))
	}
	errs = multierr.Append(errs, c.writeRegistry(ctx, &Registry{Version: c.version}))
	c.stats.Purged += len(keys)
	c.logger.Info("snapshot namespace purged", zap.Int("purged", len(keys)))
	return len(keys), errs
}

func (c *Cache) readRegistry(ctx context.Context) (*Registry, error) {
	data, ok, err := c.store.Get(ctx, RegistryKey)
	if err != nil || !ok {
		return nil, err
	}
	var reg Registry
	if err := msgpack.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot registry: %w", err)
	}
	return &reg, nil
}

func (c *Cache) writeRegistry(ctx context.Context, reg *Registry) error {
	data, err := msgpack.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot registry: %w", err)
	}
	return c.store.Set(ctx, RegistryKey, data)
}
