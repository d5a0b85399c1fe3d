package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"esuvi/internal/backend"
	"esuvi/internal/chat"
	"esuvi/internal/chat/openai"
	"esuvi/internal/cli"
	"esuvi/internal/config"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

var (
	flagSettings string
	flagUser     string
	flagEnvFile  string
)

var rootCmd = &cobra.Command{
	Use:           "esuvi",
	Short:         "Personal chat and budgeting backend",
	Long:          "Esuvi serves the chat and finance UI and manages the ledger and its settings.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if flagEnvFile != "" {
			cli.LoadEnvFile(flagEnvFile)
		} else {
			cli.LoadEnvFile()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSettings, "settings", "", "YAML settings overrides (default $SETTINGS_FILE)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Act as this user ID")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Load environment from this file instead of .env")
}

// app is the wired object graph shared by the commands.
type app struct {
	config   *config.Config
	logger   *log.Logger
	settings *settings.Settings
	backend  *backend.Result
}

// newApp loads configuration, settings and the storage backend. Logs go to
// stderr so command output stays clean.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr)

	settingsPath := flagSettings
	if settingsPath == "" {
		settingsPath = cfg.SettingsFile
	}
	appSettings, err := cli.LoadSettings(settingsPath, logger)
	if err != nil {
		return nil, err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(appSettings, logger).Create(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	return &app{config: cfg, logger: logger, settings: appSettings, backend: result}, nil
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("Backend cleanup failed", log.FieldError, err)
	}
}

// ledger builds an engine bound to ids.
func (a *app) ledger(ids identity.Provider) *ledger.Engine {
	opts := []ledger.Option{ledger.WithLogger(a.logger)}
	if a.backend.Notifier != nil {
		opts = append(opts, ledger.WithNotifier(a.backend.Notifier))
	}
	return ledger.New(a.settings, a.backend.Store, ids, opts...)
}

// completer picks the OpenAI adapter when a key is configured.
func (a *app) completer() chat.Completer {
	if a.config.OpenAIAPIKey == "" {
		a.logger.Info("No OpenAI key configured, using the offline responder")
		return chat.Echo{}
	}
	c, err := openai.New(a.config.OpenAIAPIKey, a.config.OpenAIBaseURL, a.logger)
	if err != nil {
		a.logger.Warn("OpenAI completer unavailable, using the offline responder", log.FieldError, err)
		return chat.Echo{}
	}
	return c
}

// cliIdentity is the --user flag as an identity provider.
func cliIdentity() identity.Provider {
	if flagUser == "" {
		return identity.Anonymous{}
	}
	return identity.Static{UserID: flagUser}
}
