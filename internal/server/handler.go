package server

import (
	"net/http"

	"connectrpc.com/connect"
)

const GameServiceName = "clickwar.v1.GameService"

const (
	CreateChallengeProcedure      = "/" + GameServiceName + "/CreateChallenge"
	AcceptChallengeProcedure      = "/" + GameServiceName + "/AcceptChallenge"
	RecordDuelClickProcedure      = "/" + GameServiceName + "/RecordDuelClick"
	EndChallengeProcedure         = "/" + GameServiceName + "/EndChallenge"
	GetDuelResultProcedure        = "/" + GameServiceName + "/GetDuelResult"
	ListChallengesProcedure       = "/" + GameServiceName + "/ListChallenges"
	LaunchMissileProcedure        = "/" + GameServiceName + "/LaunchMissile"
	MissileStatusProcedure        = "/" + GameServiceName + "/MissileStatus"
	GetCountryProcedure           = "/" + GameServiceName + "/GetCountry"
	GetMyCountryProcedure         = "/" + GameServiceName + "/GetMyCountry"
	GetLeaderboardProcedure       = "/" + GameServiceName + "/GetLeaderboard"
	GetSeasonProcedure            = "/" + GameServiceName + "/GetSeason"
	GetSeasonLeaderboardProcedure = "/" + GameServiceName + "/GetSeasonLeaderboard"
)

// NewGameServiceHandler mounts every game procedure under one path prefix,
// the same shape connect's generated handlers take.
func NewGameServiceHandler(svc *GameServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	procedures := map[string]http.Handler{
		CreateChallengeProcedure:      connect.NewUnaryHandler(CreateChallengeProcedure, svc.CreateChallenge, opts...),
		AcceptChallengeProcedure:      connect.NewUnaryHandler(AcceptChallengeProcedure, svc.AcceptChallenge, opts...),
		RecordDuelClickProcedure:      connect.NewUnaryHandler(RecordDuelClickProcedure, svc.RecordDuelClick, opts...),
		EndChallengeProcedure:         connect.NewUnaryHandler(EndChallengeProcedure, svc.EndChallenge, opts...),
		GetDuelResultProcedure:        connect.NewUnaryHandler(GetDuelResultProcedure, svc.GetDuelResult, opts...),
		ListChallengesProcedure:       connect.NewUnaryHandler(ListChallengesProcedure, svc.ListChallenges, opts...),
		LaunchMissileProcedure:        connect.NewUnaryHandler(LaunchMissileProcedure, svc.LaunchMissile, opts...),
		MissileStatusProcedure:        connect.NewUnaryHandler(MissileStatusProcedure, svc.MissileStatus, opts...),
		GetCountryProcedure:           connect.NewUnaryHandler(GetCountryProcedure, svc.GetCountry, opts...),
		GetMyCountryProcedure:         connect.NewUnaryHandler(GetMyCountryProcedure, svc.GetMyCountry, opts...),
		GetLeaderboardProcedure:       connect.NewUnaryHandler(GetLeaderboardProcedure, svc.GetLeaderboard, opts...),
		GetSeasonProcedure:            connect.NewUnaryHandler(GetSeasonProcedure, svc.GetSeason, opts...),
		GetSeasonLeaderboardProcedure: connect.NewUnaryHandler(GetSeasonLeaderboardProcedure, svc.GetSeasonLeaderboard, opts...),
	}

	return "/" + GameServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := procedures[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
