package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chxlky/kanban-sync/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board over HTTP",
	Long: `Loads the remote board and serves it over a local JSON API. Moves posted to
/api/board/moves are answered immediately and reconciled in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.Server.Port
		if servePort != "" {
			port = servePort
		}
		return serve(cmd.Context(), port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides server.port)")
}

func serve(ctx context.Context, port string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if _, err := a.sync.Load(ctx); err != nil {
		zap.L().Error("Initial board load failed; serving an empty board until reload", zap.Error(err))
	} else if cfg.Board.Seed {
		if _, err := a.sync.Seed(ctx); err != nil {
			zap.L().Error("Failed to seed default columns", zap.Error(err))
		}
	}

	router := api.NewRouter(&api.Handler{Sync: a.sync}, zap.L(), a.registry)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	zap.L().Info("Starting server", zap.String("port", port), zap.String("remote", cfg.Remote.BaseURL))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	var once sync.Once
	var serveErr error

	cleanup := func(reason string) {
		zap.L().Info("Shutdown initiated", zap.String("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		zap.L().Info("Shutting down HTTP server...")
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("Error shutting down server", zap.Error(err))
		} else {
			zap.L().Info("HTTP server shut down gracefully.")
		}

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if err := a.Close(drainCtx); err != nil {
			zap.L().Error("Error closing synchronizer", zap.Error(err))
		} else {
			zap.L().Info("Reconcile queue drained and store closed.")
		}
		close(done)
	}

	go func() {
		var reason string
		select {
		case sig := <-sigCh:
			reason = sig.String()
		case err := <-serverErrors:
			serveErr = err
			reason = "server error"
		}
		once.Do(func() {
			cleanup(reason)
		})

		// if a second signal is caught, exit immediately
		go func() {
			<-sigCh
			zap.L().Info("Second interrupt signal received. Exiting immediately.")
			os.Exit(1)
		}()
	}()

	<-done
	zap.L().Info("Exiting...")
	return serveErr
}
