// Package cli holds the start-up steps shared by cmd/esuvi and
// cmd/esuvi-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"esuvi/internal/config"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// SetupLogger builds the process logger at level and installs it as the slog
// default. A nil writer means stdout.
func SetupLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Writer:    w,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads the environment and reports every invalid
// value at once.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings starts from the defaults, applies the YAML overrides at path
// (if any) and logs every advisory warning.
func LoadSettings(path string, logger *log.Logger) (*settings.Settings, error) {
	logger = log.OrDiscard(logger)
	cfg := settings.NewDefault(logger)
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, fmt.Errorf("load settings %s: %w", path, err)
		}
		logger.Info("Settings overrides applied", "path", path)
	}
	for _, w := range cfg.Validate() {
		logger.Warn("Settings warning",
			log.FieldCategory, w.Category,
			log.FieldKey, w.Key,
			"warning", w.Message)
	}
	return cfg, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Call
// stop to release the signal handler.
func GracefulShutdown(parent context.Context, logger *log.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.OrDiscard(logger).Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
