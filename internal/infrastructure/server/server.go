package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	http "github.com/stratocompute/stratos/backend/internal/api/http"
	"github.com/stratocompute/stratos/backend/internal/api/middleware"
	"github.com/stratocompute/stratos/backend/internal/display"
	"github.com/stratocompute/stratos/backend/internal/domain/memory"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/config"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/monitoring"
	"github.com/stratocompute/stratos/backend/internal/logging"
	"github.com/stratocompute/stratos/backend/internal/shared/sysinfo"
	"github.com/stratocompute/stratos/backend/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	manager   *memory.Manager
	display   *display.Client
	refresher *monitoring.Refresher
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Initializing StratOS memory service",
		zap.String("port", cfg.Server.Port),
		zap.Uint32("heap_size", cfg.Memory.HeapSize),
		zap.Uint32("arena_size", cfg.Memory.ArenaSize),
		zap.Int("max_apps", cfg.Memory.MaxApps),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	logger.Info("Performance monitoring initialized")

	// Machine RAM is only echoed in system stats; when not configured,
	// detect it, falling back to the sum of the managed tiers.
	totalRAM := cfg.Memory.TotalRAM
	if totalRAM == 0 {
		fallback := uint64(cfg.Memory.HeapSize) + uint64(cfg.Memory.ArenaSize)
		totalRAM = sysinfo.TotalRAMOr(fallback)
		logger.Info("Detected system RAM", zap.Uint64("bytes", totalRAM))
	}

	// Boot the memory manager
	manager := memory.New(memory.Config{
		HeapSize:    cfg.Memory.HeapSize,
		ArenaSize:   cfg.Memory.ArenaSize,
		MaxApps:     cfg.Memory.MaxApps,
		RegionAlign: cfg.Memory.RegionAlign,
		TotalRAM:    totalRAM,
	})
	logger.Info("Memory manager booted", zap.String("boot_id", manager.BootID()))

	// Attach the display compositor (optional)
	var displayClient *display.Client
	if cfg.Display.URL != "" {
		displayClient = display.NewClient(display.Config{
			BaseURL:  cfg.Display.URL,
			Timeout:  cfg.Display.Timeout,
			RetryMax: cfg.Display.RetryMax,
			RPS:      cfg.Display.RPS,
		}, logger)
		manager.WithDisplay(displayClient)
		logger.Info("Display compositor attached", zap.String("url", cfg.Display.URL))
	}

	// Gauge refresher runs for the life of the server
	refresher := monitoring.NewRefresher(metrics, manager, cfg.Stream.Interval)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := http.NewHandlers(manager, metrics, logger)
	if displayClient != nil {
		handlers = handlers.WithDisplay(displayClient)
	}
	wsHandler := ws.NewHandler(manager, metrics, cfg.Stream.Interval, logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/status", handlers.Status)

	// Overview and kernel heap
	router.GET("/memory/overview", handlers.GetOverview)
	router.GET("/memory/heap", handlers.GetHeap)
	router.POST("/memory/heap/alloc", handlers.KernelAlloc)
	router.POST("/memory/heap/free", handlers.KernelFree)

	// App lifecycle
	router.GET("/memory/apps", handlers.ListApps)
	router.POST("/memory/apps", handlers.RegisterApp)
	router.GET("/memory/apps/:id", handlers.GetApp)
	router.DELETE("/memory/apps/:id", handlers.UnregisterApp)
	router.POST("/memory/apps/:id/alloc", handlers.AppAlloc)
	router.POST("/memory/apps/:id/free", handlers.AppFree)
	router.GET("/memory/apps/:id/can-reserve", handlers.AppCanReserve)
	router.GET("/memory/apps/:id/dump", handlers.DumpApp)

	// Arena
	router.GET("/memory/arena", handlers.GetArena)
	router.GET("/memory/arena/fragmentation", handlers.GetFragmentation)

	// Diagnostics
	router.POST("/memory/selftest", handlers.RunSelfTest)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		manager:   manager,
		display:   displayClient,
		refresher: refresher,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.refresher.Start()
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.refresher.Stop()
	s.logger.Info("Stopped metrics refresher")

	// Sync logger before exit
	s.logger.Sync()

	return nil
}

// Router exposes the gin engine so tests can drive it directly.
func (s *Server) Router() *gin.Engine { return s.router }

// Manager exposes the memory manager.
func (s *Server) Manager() *memory.Manager { return s.manager }
