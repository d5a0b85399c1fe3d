package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"esuvi/internal/chat"
	"esuvi/internal/cli"
	apphttp "esuvi/internal/http"
	"esuvi/internal/identity"
	"esuvi/internal/log"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :$PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := cli.GracefulShutdown(cmd.Context(), a.logger)
	defer stop()

	sessions := identity.NewSessions(a.settings, identity.WithLogger(a.logger))
	engine := a.ledger(sessions)
	conversation := chat.New(a.settings, a.completer(), sessions, chat.WithLogger(a.logger))

	if flagUser != "" {
		if err := sessions.SignIn(identity.Identity{UserID: flagUser}); err != nil {
			return err
		}
		if _, err := engine.LoadAll(ctx); err != nil {
			a.logger.Warn("Initial load failed", log.FieldUserID, flagUser, log.FieldError, err)
		}
	}

	addr := flagAddr
	if addr == "" {
		addr = ":" + a.config.Port
	}
	srv := apphttp.NewServer(addr, apphttp.Deps{
		Settings: a.settings,
		Ledger:   engine,
		Sessions: sessions,
		Chat:     conversation,
		Logger:   a.logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting esuvi server", "addr", addr, log.FieldBackend, a.config.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		a.logger.Info("Server stopped gracefully")
		return nil
	})
	return g.Wait()
}
