package server

import (
	"context"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/middleware"
	"clickwar/internal/service"

	"connectrpc.com/connect"
)

// GameServer implements the game RPCs. The caller's country always comes
// from the request context, never from the message.
type GameServer struct {
	duels       *service.DuelEngine
	missiles    *service.MissileEngine
	leaderboard *service.LeaderboardService
	seasons     *service.SeasonService
}

func NewGameServer(duels *service.DuelEngine, missiles *service.MissileEngine, leaderboard *service.LeaderboardService, seasons *service.SeasonService) *GameServer {
	return &GameServer{duels: duels, missiles: missiles, leaderboard: leaderboard, seasons: seasons}
}

func (s *GameServer) CreateChallenge(ctx context.Context, req *connect.Request[CreateChallengeRequest]) (*connect.Response[CreateChallengeResponse], error) {
	created, err := s.duels.Create(ctx, middleware.CountryFrom(ctx), req.Msg.ChallengedCountry, req.Msg.BetAmount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateChallengeResponse{
		Message:     "Challenge created successfully",
		ChallengeID: created.Challenge.ID,
		Challenge:   created.Challenge,
		TierWarning: created.TierWarning,
	}), nil
}

func (s *GameServer) AcceptChallenge(ctx context.Context, req *connect.Request[ChallengeRequest]) (*connect.Response[AcceptChallengeResponse], error) {
	c, err := s.duels.Accept(ctx, req.Msg.ChallengeID, middleware.CountryFrom(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AcceptChallengeResponse{
		Message:           "Challenge accepted successfully",
		ChallengeID:       c.ID,
		ChallengerCountry: c.ChallengerCountry,
		ChallengedCountry: c.ChallengedCountry,
		StartTime:         *c.StartedAt,
		DurationSeconds:   int(constants.DuelDuration.Seconds()),
	}), nil
}

func (s *GameServer) RecordDuelClick(ctx context.Context, req *connect.Request[ChallengeRequest]) (*connect.Response[DuelClickResponse], error) {
	click, err := s.duels.RecordClick(ctx, req.Msg.ChallengeID, middleware.CountryFrom(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DuelClickResponse{
		ChallengeID: req.Msg.ChallengeID,
		Clicks:      click.Clicks,
		Tallies:     click.Tallies,
	}), nil
}

func (s *GameServer) EndChallenge(ctx context.Context, req *connect.Request[ChallengeRequest]) (*connect.Response[domain.DuelResult], error) {
	res, err := s.duels.End(ctx, req.Msg.ChallengeID, middleware.CountryFrom(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *GameServer) GetDuelResult(ctx context.Context, req *connect.Request[ChallengeRequest]) (*connect.Response[domain.DuelResult], error) {
	res, err := s.duels.Result(ctx, req.Msg.ChallengeID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(res), nil
}

func (s *GameServer) ListChallenges(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListChallengesResponse], error) {
	country := middleware.CountryFrom(ctx)
	challenges, err := s.duels.ListForCountry(ctx, country)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListChallengesResponse{Country: country, Challenges: challenges}), nil
}

func (s *GameServer) LaunchMissile(ctx context.Context, req *connect.Request[LaunchMissileRequest]) (*connect.Response[LaunchMissileResponse], error) {
	res, err := s.missiles.Launch(ctx, middleware.CountryFrom(ctx), req.Msg.Target, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&LaunchMissileResponse{
		Success:                 true,
		Attacker:                res.Attacker,
		Target:                  res.Target,
		Damage:                  res.Damage,
		Cost:                    constants.MissileCost,
		TargetNewBalance:        res.TargetNewBalance,
		AttackerRemainingClicks: res.AttackerRemainingClick,
		ShieldMinutes:           int(constants.ShieldDuration.Minutes()),
		Timestamp:               res.Timestamp,
	}), nil
}

func (s *GameServer) MissileStatus(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[MissileStatusResponse], error) {
	country := middleware.CountryFrom(ctx)
	status, err := s.missiles.Status(ctx, country)
	if err != nil {
		return nil, toConnectError(err)
	}
	info, err := s.leaderboard.Country(ctx, country, true)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&MissileStatusResponse{MissileStatus: *status, CurrentClicks: info.Clicks}), nil
}

func (s *GameServer) GetCountry(ctx context.Context, req *connect.Request[CountryRequest]) (*connect.Response[service.CountryInfo], error) {
	if req.Msg.Code == "" {
		return nil, toConnectError(domain.ErrMissingTarget)
	}
	info, err := s.leaderboard.Country(ctx, domain.NormalizeCountry(req.Msg.Code), false)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(info), nil
}

func (s *GameServer) GetMyCountry(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[service.CountryInfo], error) {
	info, err := s.leaderboard.Country(ctx, middleware.CountryFrom(ctx), true)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(info), nil
}

func (s *GameServer) GetLeaderboard(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[service.Leaderboard], error) {
	board, err := s.leaderboard.Leaderboard(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(board), nil
}

func (s *GameServer) GetSeason(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[SeasonResponse], error) {
	season, err := s.seasons.Current(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SeasonResponse{Season: season}), nil
}

func (s *GameServer) GetSeasonLeaderboard(ctx context.Context, req *connect.Request[SeasonRequest]) (*connect.Response[service.SeasonLeaderboard], error) {
	board, err := s.seasons.Leaderboard(ctx, req.Msg.Name)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(board), nil
}
