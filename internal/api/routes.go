// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/agv-mapview/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	Sessions          SessionManager
	Logger            *zap.Logger
	Version           string
	AllowFileDeletion bool
	WSMaxMessageKB    int
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Maps     MapFileHandler
	Sessions SessionHandler
	View     ViewHandler
	Interact InteractionHandler
	Stream   StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Sessions),
		Maps:     NewMapFileHandler(deps.Store, deps.Sessions, deps.AllowFileDeletion, logger),
		Sessions: NewSessionHandler(deps.Store, deps.Sessions),
		View:     NewViewHandler(deps.Sessions),
		Interact: NewInteractionHandler(deps.Sessions),
		Stream:   NewSceneStreamHandler(deps.Sessions, deps.WSMaxMessageKB, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Map payloads
	maps := apiGroup.Group("/maps")
	maps.POST("/upload", handlers.Maps.HandleUploadMap)
	maps.POST("/upload/base64", handlers.Maps.HandleUploadMapBase64)
	maps.POST("/upload/chunk", handlers.Maps.HandleUploadChunk)
	maps.POST("/upload/complete", handlers.Maps.HandleCompleteUpload)
	maps.GET("", handlers.Maps.HandleListMaps)
	maps.GET("/:id", handlers.Maps.HandleGetMap)
	maps.PUT("/:id", handlers.Maps.HandleRenameMap)
	maps.DELETE("/:id", handlers.Maps.HandleDeleteMap)

	// Sessions
	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handlers.Sessions.HandleOpenSession)
	sessions.GET("", handlers.Sessions.HandleListSessions)
	sessions.GET("/:sessionId", handlers.Sessions.HandleSessionStatus)
	sessions.GET("/:sessionId/progress", handlers.Sessions.HandleSessionProgressStream)
	sessions.POST("/:sessionId/keepalive", handlers.Sessions.HandleSessionKeepAlive)
	sessions.DELETE("/:sessionId", handlers.Sessions.HandleCloseSession)

	// View and scene output
	sessions.GET("/:sessionId/stats", handlers.View.HandleStats)
	sessions.GET("/:sessionId/scene", handlers.View.HandleScene)
	sessions.GET("/:sessionId/scene/msgpack", handlers.View.HandleSceneMsgpack)
	sessions.GET("/:sessionId/preview.png", handlers.View.HandlePreview)
	sessions.PUT("/:sessionId/scale", handlers.View.HandleSetScale)
	sessions.PUT("/:sessionId/floor", handlers.View.HandleSetFloor)
	sessions.GET("/:sessionId/filter", handlers.View.HandleGetFilter)
	sessions.PUT("/:sessionId/filter", handlers.View.HandleSetFilter)
	sessions.GET("/:sessionId/outline", handlers.View.HandleGetOutline)
	sessions.POST("/:sessionId/outline", handlers.View.HandleEditOutline)
	sessions.PUT("/:sessionId/outline/:edge", handlers.View.HandleSetOutlineEdge)
	sessions.DELETE("/:sessionId/outline", handlers.View.HandleCloseOutline)

	// Parks, selection and overlays
	sessions.GET("/:sessionId/parks", handlers.Interact.HandleVisibleParks)
	sessions.GET("/:sessionId/parks/at", handlers.Interact.HandleParksAt)
	sessions.GET("/:sessionId/parks/:parkId", handlers.Interact.HandleGetPark)
	sessions.GET("/:sessionId/selection", handlers.Interact.HandleGetSelection)
	sessions.PUT("/:sessionId/selection", handlers.Interact.HandleSetSelection)
	sessions.DELETE("/:sessionId/selection", handlers.Interact.HandleClearSelection)
	sessions.POST("/:sessionId/selection/:parkId", handlers.Interact.HandleSelectPark)
	sessions.DELETE("/:sessionId/selection/:parkId", handlers.Interact.HandleDeselectPark)
	sessions.PUT("/:sessionId/candidates", handlers.Interact.HandleSetCandidates)
	sessions.PUT("/:sessionId/stock", handlers.Interact.HandleSetStock)
	sessions.PUT("/:sessionId/tags", handlers.Interact.HandleSetTags)
	sessions.PUT("/:sessionId/statuses", handlers.Interact.HandleSetStatuses)
	sessions.GET("/:sessionId/overlays/:kind", handlers.Interact.HandleGetOverlay)
	sessions.PUT("/:sessionId/overlays/:kind", handlers.Interact.HandleSetOverlay)
	sessions.POST("/:sessionId/trucks", handlers.Interact.HandleMoveTruck)
	sessions.POST("/:sessionId/travel", handlers.Interact.HandleShowTravel)

	// WebSocket scene events
	apiGroup.GET("/ws/sessions/:sessionId", handlers.Stream.HandleSceneEvents)
}

// MiddlewareConfig selects the common middleware.
type MiddlewareConfig struct {
	RequestLogging   bool
	RequestTimeout   time.Duration
	Compression      bool
	CompressionLevel int
	BodyLimit        string
	// AllowOrigins enables CORS when not empty.
	AllowOrigins []string
	ShowDetails  bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig, logger *zap.Logger) {
	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(logger, cfg.ShowDetails)

	streaming := func(c echo.Context) bool {
		path := c.Request().URL.Path
		return strings.HasSuffix(path, "/progress") ||
			strings.HasPrefix(path, "/api/ws/")
	}

	if cfg.RequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/api/health" || strings.HasSuffix(path, "/keepalive")
			},
			LogMethod:   true,
			LogURI:      true,
			LogStatus:   true,
			LogLatency:  true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				fields := []zap.Field{
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
				}
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				logger.Info("request", fields...)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: cfg.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				return streaming(c) || strings.Contains(c.Request().URL.Path, "/upload")
			},
			ErrorMessage: "Request timeout",
		}))
	}

	// Compression middleware
	if cfg.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.CompressionLevel,
			Skipper: streaming,
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
