package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hometemp/config"
	"hometemp/internal/clock"
	"hometemp/internal/core"
	"hometemp/internal/danfoss"
	"hometemp/internal/logging"
	"hometemp/internal/poller"
	"hometemp/internal/storage"

	flag "github.com/spf13/pflag"
)

const schemaTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to an optional YAML/JSON config file")
	envFile := flag.String("env-file", ".env", "Path to an optional dotenv file")
	once := flag.Bool("once", false, "Run a single poll cycle and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(config.Options{ConfigFile: *configPath, EnvFile: *envFile})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format:  cfg.Log.Format,
		Level:   logging.ParseLevel(cfg.Log.Level),
		Service: "hometemp",
	})
	slog.SetDefault(logger)
	logger.Info("Starting up", "config", cfg)

	// Initialize database
	store, err := storage.Open(cfg.Database.Driver, cfg.DSN(), logger.With("component", "storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// An unreachable database is not fatal: the schema is retried on every write
	schemaCtx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	if err := store.EnsureSchema(schemaCtx); err != nil {
		logger.Warn("Could not prepare database schema, will retry on first write", "error", err)
	}
	cancel()

	client := danfoss.NewClient(danfoss.Config{
		APIKey:    cfg.Danfoss.APIKey,
		APISecret: cfg.Danfoss.APISecret,
		BaseURL:   cfg.Danfoss.BaseURL,
		Timeout:   cfg.Danfoss.Timeout,
	})

	var (
		tokens  core.TokenSource  = client
		devices core.DeviceSource = client
		writer  core.DeviceWriter = store
	)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		tokens = logging.NewTokenSourceLogger(tokens, logger)
		devices = logging.NewDeviceSourceLogger(devices, logger)
		writer = logging.NewDeviceWriterLogger(writer, logger)
	}

	p, err := poller.New(poller.Config{
		Tokens:   tokens,
		Devices:  devices,
		Writer:   writer,
		Interval: cfg.Poll.Interval,
		Clock:    clock.RealClock{},
		Logger:   logger.With("component", "poller"),
	})
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		report := p.Cycle(ctx)
		logger.Info("Single cycle finished",
			"fetched", report.Fetched,
			"written", report.Written,
			"devices", report.Devices)
		return nil
	}

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("poller error: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
