package server

import (
	"net/http"

	"clickwar/internal/config"
	"clickwar/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func NewRouter(
	cfg *config.Config,
	game *GameServer,
	h *HTTPHandlers,
	geo middleware.CountryResolver,
	limiter *middleware.IPLimiter,
	logger zerolog.Logger,
) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID(logger), middleware.Country(geo))

	path, handler := NewGameServiceHandler(game)
	r.PathPrefix(path).Handler(handler)

	r.Handle("/clicked", limiter.Middleware(http.HandlerFunc(h.Clicked))).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/api/golden/spawn", limiter.Middleware(http.HandlerFunc(h.GoldenSpawn))).Methods(http.MethodPost)
	r.HandleFunc("/count", h.Count).Methods(http.MethodGet)
	r.HandleFunc("/paises", h.Countries).Methods(http.MethodGet)
	r.HandleFunc("/api/current-country", h.CurrentCountry).Methods(http.MethodGet)
	r.HandleFunc("/boost-status", h.BoostStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.WebSocket)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminOnly(cfg.AdminPassword))
	admin.HandleFunc("/boost", h.ActivateBoost).Methods(http.MethodPost)
	admin.HandleFunc("/missile/reset", h.ResetMissile).Methods(http.MethodPost)
	admin.HandleFunc("/season/reset-daily", h.DailyReset).Methods(http.MethodPost)
	admin.HandleFunc("/season/reset-weekly", h.WeeklyReset).Methods(http.MethodPost)
	admin.HandleFunc("/season/archive", h.ArchiveSeason).Methods(http.MethodPost)
	admin.HandleFunc("/challenge/{id:[0-9]+}/settle", h.SettleChallenge).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID", "Remaining-Ms"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
