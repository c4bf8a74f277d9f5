package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/githubixx/mythrecordings-go/internal/adapters/primary/http"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP browse API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.newLogger(os.Stdout)
			logger.Info("starting mythrecordings", slog.String("version", version), slog.String("commit", commit), slog.String("date", date))
			logger.Info("configuration loaded",
				slog.String("config", ctx.configPath()),
				slog.String("mythtv_host", cfg.MythTV.Host),
				slog.Int("mythtv_port", cfg.MythTV.Port),
				slog.String("cache_backend", cfg.Cache.Backend),
				slog.String("server_host", cfg.Server.Host),
				slog.Int("server_port", cfg.Server.Port),
			)

			runCtx := cmd.Context()
			a, err := newApp(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					logger.Error("failed to close entry store", slog.Any("error", err))
				}
			}()

			// Probe the backend early (non-fatal).
			probeCtx, cancel := context.WithTimeout(runCtx, 10*time.Second)
			if err := a.cache.CheckBackend(probeCtx); err != nil {
				logger.Warn("MythTV backend not available (continuing without it)", slog.Any("error", err))
			} else {
				logger.Info("connected to MythTV backend", slog.String("addr", a.client.Addr()))
			}
			cancel()

			handler := httpAdapter.NewHandler(logger, a.browser, a.cache, a.loc, a.client.Addr())
			mux := httpAdapter.SetupRoutes(handler, &cfg.Auth, &cfg.RateLimit, logger)
			server := httpAdapter.NewServer(&cfg.Server, logger, mux)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()
			logger.Info("server started",
				slog.String("addr", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)),
			)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-runCtx.Done():
			}

			logger.Info("shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", slog.Any("error", err))
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}
