package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"webplayer/config"
	"webplayer/handlers"
	"webplayer/logger"
	"webplayer/metrics"
	"webplayer/middleware"
	"webplayer/services"
	"webplayer/types"
	"webplayer/websocket"
)

const (
	shutdownTimeout = 10 * time.Second
	watchDebounce   = 500 * time.Millisecond
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPort != 0 {
			cfg.Port = flagPort
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return StartWebServer(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listen port (overrides PORT)")
}

// server wires the services together and implements handlers.StatusSource
type server struct {
	library services.MediaLibrary
	queue   services.SyncQueue
	hub     websocket.Hub
	metrics *metrics.Metrics
}

func (s *server) MediaRoot() string     { return s.library.Root() }
func (s *server) SyncSources() []string { return s.queue.Sources() }
func (s *server) EventClients() int     { return s.hub.ClientCount() }

// jobEvents forwards queue events to the hub and counts finished jobs
type jobEvents struct {
	hub     websocket.Hub
	metrics *metrics.Metrics
}

func (j jobEvents) Broadcast(event types.Event) {
	switch event.Type {
	case types.EventSyncComplete, types.EventSyncError:
		j.metrics.SyncJobFinished(event.Status)
	case types.EventSyncStatus:
		if event.Status == string(types.JobStatusCancelled) {
			j.metrics.SyncJobFinished(event.Status)
		}
	}
	j.hub.Broadcast(event)
}

// newServer builds the services for cfg and starts their background loops on ctx
func newServer(ctx context.Context, cfg *config.Config) (*server, error) {
	if err := os.MkdirAll(cfg.MediaRoot, 0755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	library, err := services.NewMediaLibrary(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	m := metrics.New()

	var sources []services.Source
	if cfg.DriveFolderID != "" {
		sources = append(sources, services.NewDriveSource(cfg.DriveFolderID))
	} else {
		logger.Info("drive sync disabled, DRIVE_FOLDER_ID not set")
	}
	queue := services.NewSyncQueue(library.Root(), cfg.SyncWorkers, jobEvents{hub: hub, metrics: m}, sources...)
	queue.Start(ctx)

	if len(sources) > 0 && cfg.SyncInterval > 0 {
		go scheduleSync(ctx, queue, cfg.SyncInterval)
	}

	if cfg.WatchLibrary {
		watcher, err := services.NewLibraryWatcher(library.Root(), watchDebounce, func(rel string) {
			hub.Broadcast(types.Event{
				Type:    types.EventLibraryChange,
				Path:    rel,
				Message: "library changed",
			})
		})
		if err != nil {
			logger.Warn("library watcher disabled", logger.ErrorField(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	return &server{library: library, queue: queue, hub: hub, metrics: m}, nil
}

// scheduleSync queues a run of every source now and then once per interval
func scheduleSync(ctx context.Context, queue services.SyncQueue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for _, source := range queue.Sources() {
			if _, err := queue.AddJob(source); err != nil {
				logger.Warn("scheduled sync not queued", logger.String("source", source), logger.ErrorField(err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// StartWebServer starts the web server and blocks until ctx is cancelled
func StartWebServer(ctx context.Context, cfg *config.Config) error {
	switch cfg.GinMode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logging())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(srv.metrics.Middleware())

	setupRoutes(r, srv, services.NewSettingsStore(cfg.SettingsPath, cfg.IntroText))

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Web-Player listening",
			logger.Int("port", cfg.Port),
			logger.String("mediaRoot", srv.library.Root()))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, srv *server, settings services.SettingsStore) {
	mediaHandler := handlers.NewMediaHandler(srv.library, srv.metrics)
	settingsHandler := handlers.NewSettingsHandler(settings)
	syncHandler := handlers.NewSyncHandler(srv.queue, srv.hub)
	healthHandler := handlers.NewHealthHandler(srv)

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(srv.metrics.Handler()))

	// Raw media bytes
	r.GET("/media/*path", mediaHandler.StreamFile)
	r.HEAD("/media/*path", mediaHandler.StreamFile)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		apiGroup.GET("/media", mediaHandler.ListDirectory)
		apiGroup.GET("/media/meta", mediaHandler.Metadata)

		apiGroup.GET("/config", settingsHandler.GetSettings)
		apiGroup.PUT("/config", settingsHandler.UpdateSettings)

		syncGroup := apiGroup.Group("/sync")
		{
			syncGroup.POST("", syncHandler.QueueSync)
			syncGroup.GET("/jobs", syncHandler.GetAllJobs)
			syncGroup.GET("/jobs/:jobId", syncHandler.GetJob)
			syncGroup.DELETE("/jobs/:jobId", syncHandler.CancelJob)
		}

		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/events", syncHandler.HandleEvents)
			wsGroup.GET("/jobs/:jobId", syncHandler.HandleJobEvents)
		}
	}
}
