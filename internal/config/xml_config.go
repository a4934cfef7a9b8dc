// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/agv-mapview/backend/internal/geometry"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"AGVMapView"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing"`

	// Map rendering configuration
	Render RenderConfig `xml:"Render"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	MapsDirectory     string `xml:"MapsDirectory"`
	SnapshotDatabase  string `xml:"SnapshotDatabase"`
	SnapshotBackend   string `xml:"SnapshotBackend"` // "duckdb" or "memory"
	AllowFileDeletion bool   `xml:"AllowFileDeletion"`
}

// ProcessingConfig contains session settings
type ProcessingConfig struct {
	MaxSessions            int  `xml:"MaxSessions"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// RenderConfig contains coordinate frame, level-of-detail and styling settings
type RenderConfig struct {
	UnitScale        float64 `xml:"UnitScale"`
	OffsetX          float64 `xml:"OffsetX"`
	OffsetY          float64 `xml:"OffsetY"`
	Precision        int     `xml:"Precision"`
	CriticalScale    float64 `xml:"CriticalScale"`
	PointScale       float64 `xml:"PointScale"`
	PointRadius      float64 `xml:"PointRadius"`
	FloorCapacity    int     `xml:"FloorCapacity"`
	FilterDebounceMs int     `xml:"FilterDebounceMs"`
	FrameIntervalMs  int     `xml:"FrameIntervalMs"`
	SchemaVersion    string  `xml:"SchemaVersion"`
	StyleSheet       string  `xml:"StyleSheet"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	DuckDBThreads           int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "512M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			MapsDirectory:     "./data/maps",
			SnapshotDatabase:  "./data/snapshots.duckdb",
			SnapshotBackend:   "duckdb",
			AllowFileDeletion: true,
		},
		Processing: ProcessingConfig{
			MaxSessions:            10,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Render: RenderConfig{
			UnitScale:        geometry.DefaultUnitScale,
			Precision:        4,
			CriticalScale:    0.1,
			PointScale:       3,
			FloorCapacity:    1000,
			FilterDebounceMs: 200,
			FrameIntervalMs:  16,
			SchemaVersion:    "1.0.0",
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			DuckDBThreads:           4,
			DuckDBMemoryLimit:       "1GB",
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Missing elements keep their defaults
	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- AGV Map View Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the renderer cannot work with.
func (c *AppConfig) Validate() error {
	if c.Render.UnitScale <= 0 {
		return fmt.Errorf("invalid config: Render.UnitScale must be positive, got %g", c.Render.UnitScale)
	}
	if c.Render.CriticalScale <= 0 {
		return fmt.Errorf("invalid config: Render.CriticalScale must be positive, got %g", c.Render.CriticalScale)
	}
	if c.Render.FloorCapacity <= 0 {
		return fmt.Errorf("invalid config: Render.FloorCapacity must be positive, got %d", c.Render.FloorCapacity)
	}
	switch c.Storage.SnapshotBackend {
	case "duckdb", "memory":
	default:
		return fmt.Errorf("invalid config: Storage.SnapshotBackend must be duckdb or memory, got %q", c.Storage.SnapshotBackend)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves every storage path that was not set explicitly
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		defaults := DefaultConfig().Storage
		if c.Storage.MapsDirectory == defaults.MapsDirectory {
			c.Storage.MapsDirectory = filepath.Join(dataDir, "maps")
		}
		if c.Storage.SnapshotDatabase == defaults.SnapshotDatabase {
			c.Storage.SnapshotDatabase = filepath.Join(dataDir, "snapshots.duckdb")
		}
		c.Storage.DataDirectory = dataDir
	}

	if db := os.Getenv("MAPVIEW_SNAPSHOT_DB"); db != "" {
		c.Storage.SnapshotDatabase = db
	}

	if level := os.Getenv("MAPVIEW_LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.MapsDirectory,
		&c.Storage.SnapshotDatabase,
		&c.Render.StyleSheet,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetMapsDir returns the absolute map file directory path
func (c *AppConfig) GetMapsDir() string {
	return c.Storage.MapsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// Frame returns the AGV-to-screen coordinate frame.
func (r RenderConfig) Frame() geometry.Frame {
	return geometry.NewFrame(r.UnitScale, r.OffsetX, r.OffsetY, r.Precision)
}

// FilterDebounce returns the filter coalescing window.
func (r RenderConfig) FilterDebounce() time.Duration {
	return time.Duration(r.FilterDebounceMs) * time.Millisecond
}

// FrameInterval returns the deferred-redraw frame interval.
func (r RenderConfig) FrameInterval() time.Duration {
	return time.Duration(r.FrameIntervalMs) * time.Millisecond
}

// SessionTimeout returns how long idle sessions are kept.
func (p ProcessingConfig) SessionTimeout() time.Duration {
	return time.Duration(p.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions are swept.
func (p ProcessingConfig) CleanupInterval() time.Duration {
	return time.Duration(p.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.MapsDirectory,
	}
	if c.Storage.SnapshotBackend == "duckdb" {
		dirs = append(dirs, filepath.Dir(c.Storage.SnapshotDatabase))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
