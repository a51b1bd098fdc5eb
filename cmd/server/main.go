package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-signals/internal/api"
	"github.com/codyseavey/tcg-signals/internal/config"
	"github.com/codyseavey/tcg-signals/internal/database"
	"github.com/codyseavey/tcg-signals/internal/logging"
	"github.com/codyseavey/tcg-signals/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $TCG_CONFIG)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := logging.New("info", false)
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if logger, err = logging.New(cfg.LogLevel, false); err != nil {
		zap.L().Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := database.Initialize(cfg.DBPath); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	if cfg.CacheBackend == config.CacheBackendSQLite && cfg.CacheFile != "" {
		imported, err := database.ImportLegacyIdentityCache(database.GetDB(), cfg.CacheFile)
		if err != nil {
			logger.Warn("legacy identity cache not imported", zap.Error(err))
		} else if imported > 0 {
			logger.Info("imported legacy identity cache", zap.Int("entries", imported))
		}
	}

	pipeline, err := services.NewPipeline(ctx, cfg, database.GetDB(), services.PipelineOptions{Summaries: true})
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	serveErr := serve(ctx, cancel, cfg, database.GetDB(), pipeline, logger)
	if err := pipeline.Close(); err != nil {
		logger.Warn("pipeline shutdown", zap.Error(err))
	}
	if serveErr != nil {
		logger.Error("server stopped", zap.Error(serveErr))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("server exited")
}

// serve runs the dataset worker, the scheduler and the HTTP server until a
// shutdown signal arrives or one of them fails to start.
func serve(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, db *gorm.DB, pipeline *services.Pipeline, logger *zap.Logger) error {
	// Stop the worker between cards on every exit path
	defer cancel()

	worker := services.NewDatasetWorker(pipeline.Collector, db, outputDir(cfg))

	// Start the dataset worker in the background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("panic in dataset worker, restarting in 30 seconds", zap.Any("panic", r))
					}
				}()
				worker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
				logger.Info("dataset worker restarting after panic recovery")
			}
		}
	}()

	if cfg.ScheduleCron != "" {
		scheduler, err := services.NewRunScheduler(cfg.ScheduleCron, cfg.ScheduleCardFile, worker, cfg.AcquisitionPrice())
		if err != nil {
			return fmt.Errorf("failed to schedule dataset runs: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := api.SetupRouter(api.Dependencies{
		Resolver:    pipeline.Resolver,
		History:     pipeline.History,
		Evaluator:   pipeline.Collector,
		Worker:      worker,
		Identities:  pipeline.Identities(),
		SetHint:     cfg.SetHint,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-listenErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	return nil
}

// outputDir is where per-run CSV files land: runs/ next to output_path.
func outputDir(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.OutputPath), "runs")
}
