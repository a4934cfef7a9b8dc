package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/agv-mapview/backend/internal/api"
	"github.com/agv-mapview/backend/internal/config"
	"github.com/agv-mapview/backend/internal/engine"
	"github.com/agv-mapview/backend/internal/logging"
	"github.com/agv-mapview/backend/internal/models"
	"github.com/agv-mapview/backend/internal/parser"
	"github.com/agv-mapview/backend/internal/session"
	"github.com/agv-mapview/backend/internal/snapshot"
	"github.com/agv-mapview/backend/internal/storage"
	"github.com/agv-mapview/backend/internal/web"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(filepath.Dir(exePath), "AGVMapView.config")
	if p := os.Getenv("MAPVIEW_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Advanced.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, configPath, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, configPath string, logger *zap.Logger) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openSnapshotStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := snapshot.NewCache(store, cfg.Render.SchemaVersion, logger)
	if dropped, err := cache.Validate(ctx); err != nil {
		logger.Warn("snapshot validation failed", zap.Error(err))
	} else if dropped > 0 {
		logger.Info("discarded stale snapshots", zap.Int("count", dropped))
	}

	style := models.DefaultStyleSheet()
	if cfg.Render.StyleSheet != "" {
		if style, err = parser.ParseStyleSheet(cfg.Render.StyleSheet); err != nil {
			return fmt.Errorf("failed to load style sheet: %w", err)
		}
	}

	registry := parser.GetGlobalRegistry()
	sessions := session.NewManager(session.Options{
		Engine: engine.Options{
			Frame:          cfg.Render.Frame(),
			CriticalScale:  cfg.Render.CriticalScale,
			PointScale:     cfg.Render.PointScale,
			PointRadius:    cfg.Render.PointRadius,
			FloorCapacity:  cfg.Render.FloorCapacity,
			FilterDebounce: cfg.Render.FilterDebounce(),
			FrameInterval:  cfg.Render.FrameInterval(),
			Style:          style,
			Cache:          cache,
			Registry:       registry,
			Logger:         logger,
		},
		MaxSessions: cfg.Processing.MaxSessions,
		Logger:      logger,
	})
	defer sessions.Close()
	go sessions.RunCleanup(ctx, cfg.Processing.CleanupInterval(), cfg.Processing.SessionTimeout())

	files, err := storage.NewLocalStore(cfg.GetMapsDir(), registry.DetectFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	var origins []string
	if cfg.Server.EnableCORS {
		for _, o := range strings.Split(cfg.Server.AllowOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) == 0 {
			origins = []string{"*"}
		}
	}
	api.SetupMiddleware(e, api.MiddlewareConfig{
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		RequestTimeout:   time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Compression:      cfg.Processing.EnableCompression,
		CompressionLevel: cfg.Processing.CompressionLevel,
		BodyLimit:        cfg.Server.BodyLimit,
		AllowOrigins:     origins,
		ShowDetails:      cfg.Advanced.LogLevel == "debug",
	}, logger)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:             files,
		Sessions:          sessions,
		Logger:            logger,
		Version:           Version,
		AllowFileDeletion: cfg.Storage.AllowFileDeletion,
		WSMaxMessageKB:    cfg.Advanced.WebSocketMaxMessageSize,
	}))

	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", zap.Error(err))
			embeddedMode = false
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, embeddedMode)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func openSnapshotStore(cfg *config.AppConfig) (snapshot.Store, error) {
	if cfg.Storage.SnapshotBackend == "memory" {
		return snapshot.NewMemoryStore(), nil
	}
	store, err := snapshot.NewDuckStore(cfg.Storage.SnapshotDatabase, snapshot.DuckOptions{
		Threads:     cfg.Advanced.DuckDBThreads,
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	return store, nil
}

func printBanner(cfg *config.AppConfig, configPath string, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "Embedded viewer"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           AGV Map View Server                             ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Maps Dir:  %-46s║\n", cfg.GetMapsDir())
	fmt.Printf("║  Snapshots: %-46s║\n", cfg.Storage.SnapshotBackend)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
