package server

import (
	"net/http"
	"strconv"

	"clickwar/internal/broadcast"
	"clickwar/internal/config"
	"clickwar/internal/domain"
	"clickwar/internal/middleware"
	"clickwar/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// HTTPHandlers serves the plain HTTP surface: clicks, counters, the
// websocket feed and operator actions.
type HTTPHandlers struct {
	clicks      *service.ClickService
	leaderboard *service.LeaderboardService
	missiles    *service.MissileEngine
	duels       *service.DuelEngine
	seasons     *service.SeasonService
	hub         *broadcast.Hub
	upgrader    websocket.Upgrader
	logger      zerolog.Logger
}

func NewHTTPHandlers(
	cfg *config.Config,
	clicks *service.ClickService,
	leaderboard *service.LeaderboardService,
	missiles *service.MissileEngine,
	duels *service.DuelEngine,
	seasons *service.SeasonService,
	hub *broadcast.Hub,
	logger zerolog.Logger,
) *HTTPHandlers {
	return &HTTPHandlers{
		clicks:      clicks,
		leaderboard: leaderboard,
		missiles:    missiles,
		duels:       duels,
		seasons:     seasons,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func (h *HTTPHandlers) Clicked(w http.ResponseWriter, r *http.Request) {
	res, err := h.clicks.Click(r.Context(), middleware.CountryFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandlers) Count(w http.ResponseWriter, r *http.Request) {
	total, err := h.clicks.GlobalCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": total})
}

func (h *HTTPHandlers) Countries(w http.ResponseWriter, r *http.Request) {
	balances, err := h.clicks.Countries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *HTTPHandlers) CurrentCountry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"country": middleware.CountryFrom(r.Context())})
}

func (h *HTTPHandlers) BoostStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clicks.Boost())
}

func (h *HTTPHandlers) GoldenSpawn(w http.ResponseWriter, r *http.Request) {
	spawn := h.clicks.SpawnGolden(middleware.CountryFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "country": spawn.Country, "spawnedAt": spawn.SpawnedAt})
}

func (h *HTTPHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": h.hub.Count()})
}

// WebSocket streams game events. Each new client and every
// requestRankings frame triggers a fresh ranking broadcast.
func (h *HTTPHandlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	ctx := r.Context()
	rankings := func() { h.leaderboard.BroadcastRankings(ctx) }

	h.hub.Serve(conn, rankings, func(msg broadcast.Message) {
		if msg.Type == "requestRankings" {
			h.leaderboard.BroadcastRankings(ctx)
		}
	})
}

func (h *HTTPHandlers) ActivateBoost(w http.ResponseWriter, r *http.Request) {
	st := h.clicks.ActivateBoost()
	writeJSON(w, http.StatusOK, map[string]any{"boost": "ON", "expiresIn": st.RemainingMs / 1000})
}

func (h *HTTPHandlers) ResetMissile(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("country_code")
	if err := h.missiles.ResetCooldown(r.Context(), code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Missile cooldown reset for " + domain.NormalizeCountry(code)})
}

func (h *HTTPHandlers) DailyReset(w http.ResponseWriter, r *http.Request) {
	n, err := h.seasons.DailyReset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Daily missile cooldowns reset", "cleared": n})
}

func (h *HTTPHandlers) WeeklyReset(w http.ResponseWriter, r *http.Request) {
	res, err := h.seasons.WeeklyReset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandlers) ArchiveSeason(w http.ResponseWriter, r *http.Request) {
	res, err := h.seasons.Archive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandlers) SettleChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, domain.ErrChallengeMissing)
		return
	}
	res, err := h.duels.ForceSettle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
