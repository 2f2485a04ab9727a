package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"rpsvision/internal/config"
	"rpsvision/internal/logger"
	"rpsvision/internal/repository/sqlite"
	"rpsvision/internal/routes"
	"rpsvision/internal/service"
	"rpsvision/internal/service/ai"
	"rpsvision/internal/service/storage"
	"rpsvision/internal/service/websocket"
)

// shutdownTimeout bounds how long in-flight requests may take once the server stops.
const shutdownTimeout = 10 * time.Second

type App struct {
	config           *config.Config
	logger           *logger.Logger
	db               *sqlite.DB
	detectorServices []*ai.DetectorService
	bufferService    *storage.BufferService
	hubService       *websocket.HubService
	manager          *service.Manager
	server           *http.Server
}

func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	roundRepo := sqlite.NewRoundRepository(db)

	detectors := make([]*ai.DetectorService, 0, cfg.ProcessingWorkers)
	workers := make([]service.Detector, 0, cfg.ProcessingWorkers)
	for i := 0; i < cfg.ProcessingWorkers; i++ {
		ds, err := ai.NewDetectorService(cfg, logger) // załaduj model osobno
		if err != nil {
			for _, d := range detectors {
				d.Close()
			}
			db.Close()
			return nil, fmt.Errorf("failed to load detector %d: %w", i, err)
		}
		detectors = append(detectors, ds)
		workers = append(workers, ds)
	}

	buffer := storage.NewBufferService(cfg, logger, roundRepo)
	hub := websocket.NewHubService(logger)
	mng := service.NewManager(workers, buffer, hub, roundRepo, cfg, logger)

	router := routes.SetupRoutes(mng, cfg, logger, roundRepo)

	return &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		detectorServices: detectors,
		bufferService:    buffer,
		hubService:       hub,
		manager:          mng,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and releases resources.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	bufferDone := make(chan struct{})
	go func() {
		a.bufferService.Run(bgCtx)
		close(bufferDone)
	}()
	go a.hubService.Run(bgCtx)

	a.logger.Info("🚀 Rock Paper Scissors prediction server")
	a.logger.Info("📍 URL: %s", a.config.PublicURL)
	a.logger.Info("📁 Snapshots: %s", a.config.SnapshotDirectory)
	a.logger.Info("🤖 AI Model: %s (%d worker(s))", a.config.ModelPath, len(a.detectorServices))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
		a.logger.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = a.server.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	a.manager.Stop()
	stopBackground()
	<-bufferDone
	a.close()
	return err
}

func (a *App) close() {
	for _, d := range a.detectorServices {
		if err := d.Close(); err != nil {
			a.logger.Error("Failed to close detector: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
}
