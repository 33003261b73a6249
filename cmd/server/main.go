package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/clients/quantum"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/cloud"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/config"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/database"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/database/repositories"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/events"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/budget"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/heartbeat"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/surface"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/scheduler"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/server"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Quantum Heartbeat")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	em := events.NewManager(log)
	runs := repositories.NewRunRepository(db.Conn(), log)
	state := repositories.NewSurfaceRepository(db.Conn(), log)

	// Surface service, reloading any persisted vertex set
	surfaceSvc := surface.NewService(state, em, log, cfg.BaseRadius, cfg.DisplacementScale)
	if err := surfaceSvc.Restore(); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore surface snapshot")
	}

	// Budget ledger
	ledger := budget.NewLedger(cfg.QuotaSeconds, time.Duration(cfg.QuotaPeriodDays)*24*time.Hour, log)

	// Heartbeat service
	beatSvc, err := heartbeat.NewService(cfg, ledger, runs, state, surfaceSvc, em,
		backends(cfg, log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize heartbeat service")
	}

	// Optional cloud upload
	if cfg.UploadEnabled() {
		uploader, err := cloud.New(context.Background(), cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cloud uploader")
		}
		beatSvc.SetUploader(uploader)
	}

	// Live beat stream
	stream := server.NewStreamHub(log)
	beatSvc.SetNotify(stream.Broadcast)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	if err := registerJobs(sched, beatSvc, cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		Config:    cfg,
		DevMode:   cfg.DevMode,
		Runs:      runs,
		Surface:   surfaceSvc,
		Ledger:    ledger,
		Heartbeat: beatSvc,
		Stream:    stream,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// backends builds the rotation list. Only the local sampler ships today; the
// rotation names in config select among the registered backends.
func backends(cfg *config.Config, log zerolog.Logger) []quantum.Backend {
	available := []quantum.Backend{quantum.NewSampler(log)}
	if len(cfg.BackendRotation) == 0 {
		return available
	}

	byName := make(map[string]quantum.Backend, len(available))
	for _, b := range available {
		byName[b.Name()] = b
	}

	var selected []quantum.Backend
	for _, name := range cfg.BackendRotation {
		if b, ok := byName[name]; ok {
			selected = append(selected, b)
		} else {
			log.Warn().Str("backend", name).Msg("Unknown backend in rotation, skipping")
		}
	}
	if len(selected) == 0 {
		return available
	}
	return selected
}

func registerJobs(sched *scheduler.Scheduler, beatSvc *heartbeat.Service, cfg *config.Config) error {
	return sched.AddJob(cfg.BeatSchedule, heartbeat.NewBeatJob(beatSvc))
}
