package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/infrastructure/events"
	"github.com/vsinha/ordercalc/pkg/interfaces/api"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculation over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			if cmd.Flags().Changed("port") {
				app.Config.API.Port = port
			}
			return runServe(cmd.Context(), app)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides the config)")
	return cmd
}

func runServe(ctx context.Context, app *App) error {
	log := app.Logger

	gw, err := app.Gateway(ctx)
	if err != nil {
		return err
	}

	runs := events.NewInMemoryEventStore(log)
	defer runs.Close()

	handlers := api.NewHandlers(app.Calculator(gw), gw, runs, app.Options(), log)

	var gatherer prometheus.Gatherer
	if app.Config.API.EnableMetrics {
		gatherer = app.Registry
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.Config.API.Port),
		Handler:      api.NewRouter(handlers, gatherer),
		ReadTimeout:  app.Config.API.ReadTimeout,
		WriteTimeout: app.Config.API.WriteTimeout,
		IdleTimeout:  app.Config.API.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", app.Config.API.Port),
			zap.String("source", app.Config.Source),
			zap.Bool("metrics", gatherer != nil))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown gracefully", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
