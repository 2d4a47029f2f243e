package fx

import (
	"context"
	"database/sql"

	"clickwar/internal/api"
	"clickwar/internal/broadcast"
	"clickwar/internal/config"
	"clickwar/internal/database"
	"clickwar/internal/db"
	"clickwar/internal/domain"
	"clickwar/internal/logger"
	"clickwar/internal/middleware"
	"clickwar/internal/repository"
	"clickwar/internal/scheduler"
	"clickwar/internal/server"
	"clickwar/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideLimiter(cfg *config.Config) *middleware.IPLimiter {
	return middleware.NewIPLimiter(cfg.ClickRate, cfg.ClickBurst)
}

func applyLogLevel(cfg *config.Config, log zerolog.Logger) {
	logger.ApplyLevel(cfg.LogLevel, log)
}

// RunScheduler ties the maintenance jobs to the app lifecycle. Invoke it
// after the server so jobs stop before the database closes.
func RunScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	fx.Provide(service.SystemClock),
	// repos
	fx.Provide(repository.NewStore),
	fx.Provide(repository.NewSeasonRepository),
	// clients
	fx.Provide(fx.Annotate(api.NewGeoClient, fx.As(fx.Self()), fx.As(new(middleware.CountryResolver)))),
	fx.Provide(fx.Annotate(broadcast.NewHub, fx.As(fx.Self()), fx.As(new(domain.Publisher)))),
	fx.Provide(ProvideLimiter),
	// svc
	fx.Provide(service.NewCooldownTracker),
	fx.Provide(service.NewShieldTracker),
	fx.Provide(service.NewLeaderboardService),
	fx.Provide(service.NewMissileEngine),
	fx.Provide(service.NewDuelEngine),
	fx.Provide(service.NewClickService),
	fx.Provide(service.NewSeasonService),
	fx.Provide(scheduler.New),
	// server
	fx.Provide(server.NewGameServer),
	fx.Provide(server.NewHTTPHandlers),
	fx.Provide(server.NewRouter),
	fx.Invoke(applyLogLevel),
)
