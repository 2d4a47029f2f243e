package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"clickwar/internal/broadcast"
	"clickwar/internal/config"
	"clickwar/internal/constants"
	fxmodules "clickwar/internal/fx"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(fxmodules.RunScheduler),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	router http.Handler,
	hub *broadcast.Hub,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			hub.Close()
			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
			}

			if cerr := db.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("error closing database connection")
			}
			if err != nil {
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
