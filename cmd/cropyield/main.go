// @title Crop Yield Predictor API
// @version 1.0
// @description Predicts crop yield (hg/ha) from year, rainfall, pesticide use, temperature, area and crop item.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/crop-yield-predictor/api"
	"github.com/OldStager01/crop-yield-predictor/internal/auth"
	"github.com/OldStager01/crop-yield-predictor/internal/events"
	"github.com/OldStager01/crop-yield-predictor/internal/inference"
	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/internal/metrics"
	"github.com/OldStager01/crop-yield-predictor/pkg/config"
	"github.com/OldStager01/crop-yield-predictor/pkg/database"
	"github.com/OldStager01/crop-yield-predictor/pkg/database/queries"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
	"github.com/OldStager01/crop-yield-predictor/pkg/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	issueToken := flag.String("issue-token", "", "print a history API token for `subject` and exit")
	flag.Parse()

	cfg, err := config.Watch(*configPath, onConfigChange, func(err error) {
		logger.Errorf("Ignoring config reload: %v", err)
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logFile := logger.SetupFile(logger.FileConfig{
		Path:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
	})
	defer logFile.Close()

	authService := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTIssuer, cfg.API.JWTDuration)

	if *issueToken != "" {
		token, err := authService.GenerateToken(*issueToken)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled || *migrate {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		if err := database.NewMigrator(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	validator := validation.Default()

	invoker, err := loadPipeline(cfg.Inference, validator)
	if err != nil {
		return err
	}

	m := metrics.New()
	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()

	var store events.HistoryStore
	if db != nil {
		store = queries.NewPredictionRepository(db.DB)
	}
	recorder := events.NewRecorder(events.RecorderConfig{
		Store:        store,
		Observer:     m,
		MaxFailures:  cfg.Recorder.MaxFailures,
		OpenTimeout:  cfg.Recorder.OpenTimeout,
		WriteTimeout: cfg.Recorder.WriteTimeout,
	}, bus.SubscribeAll())
	recorder.Start()
	defer recorder.Stop()

	server, err := api.NewServer(cfg, api.Dependencies{
		Validator: validator,
		Predictor: invoker,
		Bus:       bus,
		Metrics:   m,
		DB:        db,
		Auth:      authService,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// onConfigChange applies the settings that are safe to change without a restart.
func onConfigChange(cfg *config.Config) {
	if cfg.App.LogLevel != logger.Level() {
		logger.SetLevel(cfg.App.LogLevel)
		logger.Infof("Log level changed to %s", logger.Level())
	}
}

func loadPipeline(cfg config.InferenceConfig, validator *validation.Validator) (*inference.Invoker, error) {
	pre, err := inference.LoadPreprocessor(cfg.PreprocessorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load preprocessor: %w", err)
	}

	model, err := inference.LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	if err := checkCoverage(pre, validator, cfg.StrictCategories); err != nil {
		return nil, err
	}

	cache, err := inference.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}

	invoker, err := inference.NewInvoker(inference.InvokerConfig{
		Transformer: pre,
		Predictor:   model,
		Cache:       cache,
	})
	if err != nil {
		return nil, fmt.Errorf("incompatible artifacts: %w", err)
	}

	logger.Infof("Loaded pipeline: %d features, cache size %d", model.NumFeatures(), cfg.CacheSize)
	return invoker, nil
}

// checkCoverage reports allow-listed values the encoder cannot transform.
func checkCoverage(pre *inference.Preprocessor, validator *validation.Validator, strict bool) error {
	columns := []struct {
		name    string
		allowed []string
	}{
		{models.FieldArea, validator.Areas().Values()},
		{models.FieldItem, validator.Items().Values()},
	}

	uncovered := 0
	for _, col := range columns {
		missing := inference.UncoveredCategories(pre, col.name, col.allowed)
		if len(missing) > 0 {
			logger.Warnf("Preprocessor has no %s category for %d allowed values: %v", col.name, len(missing), missing)
			uncovered += len(missing)
		}
	}

	if strict && uncovered > 0 {
		return fmt.Errorf("%d allowed values are not covered by the preprocessor", uncovered)
	}
	return nil
}
