package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"eventcast/api"
	"eventcast/config"
	"eventcast/internal/cache"
	"eventcast/internal/explain"
	"eventcast/internal/forecast"
	"eventcast/internal/logger"
	"eventcast/internal/orchestrate"
	"eventcast/internal/ratelimit"
	"eventcast/internal/scheduler"
	"eventcast/internal/server"
	"eventcast/internal/store"
)

func main() {
	// Define command-line flags
	configPath := flag.String("config", getDefaultConfigPath(), "Path to TOML configuration file")
	logLevel := flag.String("log-level", "", "Logging level override (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Log output file (overrides the logging section of the config)")
	generateConfig := flag.Bool("generate-config", false, "Generate a sample configuration file and exit")
	flag.Parse()

	// Handle config generation
	if *generateConfig {
		if err := config.GenerateSampleConfig(*configPath); err != nil {
			logger.Fatal("Failed to generate sample config: %v", err)
		}
		logger.Info("Sample configuration file created at: %s", *configPath)
		logger.Info("Please edit the file to add your API credentials and customize settings")
		return
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		var configNotFound *config.ConfigNotFoundError
		if errors.As(err, &configNotFound) {
			logger.Fatal("%v", err)
		} else {
			logger.Fatal("Failed to load configuration: %v", err)
		}
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.Directory = filepath.Dir(*logFile)
		cfg.Logging.FilenamePattern = filepath.Base(*logFile)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Configuration validation failed: %v", err)
	}

	// Configure logging
	if err := logger.Initialize(logger.Config{
		Enabled:         cfg.Logging.Enabled,
		Directory:       cfg.Logging.Directory,
		FilenamePattern: cfg.Logging.FilenamePattern,
		Level:           cfg.Logging.Level,
		MaxSizeMB:       cfg.Logging.MaxSizeMB,
		ConsoleOutput:   cfg.Logging.ConsoleOutput,
	}); err != nil {
		logger.Fatal("Failed to initialize logging: %v", err)
	}

	logger.Info("Eventcast - Weather Planning Service")
	logger.Debug("Starting with config: %s", *configPath)

	if err := run(cfg); err != nil {
		logger.Fatal("%v", err)
	}
}

func run(cfg *config.Config) error {
	// Weather providers. Meteomatics credentials may be absent; forecast
	// calls then fail upstream and the router falls back to historical data.
	nasa := api.NewNASAClient()
	meteomatics := api.NewMeteomaticsClient(cfg.Weather.MeteomaticsUsername, cfg.Weather.MeteomaticsPassword)
	if cfg.Weather.MeteomaticsUsername == "" {
		logger.Warn("Meteomatics credentials not configured, forecasts will fall back to historical data")
	}

	router := forecast.NewRouter(nasa, meteomatics, forecast.RouterOptions{
		ShortTermDays: cfg.Weather.ShortTermDays,
		SeasonalDays:  cfg.Weather.SeasonalDays,
	})

	geocoder := api.NewGeocodeClient()

	// Claude is optional: without a key the explanation service uses its
	// deterministic local phrasing.
	var generator explain.Generator
	if cfg.Claude.APIKey != "" {
		claude, err := api.NewClaudeClient(api.ClaudeConfig{
			APIKey:      cfg.Claude.APIKey,
			Model:       cfg.Claude.Model,
			MaxTokens:   cfg.Claude.MaxTokens,
			Temperature: cfg.Claude.Temperature,
			MaxRetries:  cfg.Claude.MaxRetries,
			BaseDelay:   time.Duration(cfg.Claude.BaseDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.Claude.MaxDelayMs) * time.Millisecond,
			RateLimit:   cfg.Claude.RateLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to create Claude client: %w", err)
		}
		generator = claude
	} else {
		logger.Info("No Claude API key configured, using local explanation fallback")
	}
	explainer := explain.NewService(generator)

	limiter := ratelimit.New(
		ratelimit.WithMinInterval(time.Duration(cfg.RateLimit.MinIntervalMs)*time.Millisecond),
		ratelimit.WithWindow(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second),
	)
	results := cache.New(cfg.Cache.Capacity, cfg.Cache.EvictBatch)

	orch := orchestrate.New(router, geocoder, explainer, limiter, results)

	st, err := store.New(cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	// The favorability sweep talks to the router directly so background
	// work does not consume the interactive request budget.
	var sweeper *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		evaluator := scheduler.NewEvaluator(st, router, geocoder)
		sweeper = scheduler.New(evaluator, time.Duration(cfg.Scheduler.IntervalMinutes)*time.Minute)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	srv := server.New(orch, st)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	orch.Shutdown()
	if sweeper != nil {
		sweeper.Stop()
	}
	if err := srv.Shutdown(10 * time.Second); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
	logger.Info("Eventcast stopped")
	return nil
}

// getDefaultConfigPath returns a cross-platform default config path
func getDefaultConfigPath() string {
	return filepath.Clean("config.toml")
}
