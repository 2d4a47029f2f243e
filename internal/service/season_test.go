package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
)

func TestSeasonArchiveAndSnapshot(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 5000, "FR": 3000, "JP": 120000})
	ctx := context.Background()

	current, err := env.seasons.Current(ctx)
	if err != nil || current != constants.DefaultSeason {
		t.Fatalf("expected rookie season, got %q err=%v", current, err)
	}
	empty, err := env.seasons.Leaderboard(ctx, "")
	if err != nil || len(empty.Rankings) != 0 {
		t.Fatalf("rookie season should be empty, got %+v err=%v", empty, err)
	}

	res, err := env.seasons.Archive(ctx)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if res.Season != "Season-2026-03-02" || res.Countries != 3 || len(res.Hash) != 64 {
		t.Fatalf("unexpected archive %+v", res)
	}

	board, err := env.seasons.Leaderboard(ctx, "")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board.Season != res.Season || board.Rankings[0].Code != "JP" || board.Rankings[0].Tier != domain.TierLegendary {
		t.Fatalf("unexpected season board %+v", board)
	}

	entries, err := env.seasons.Snapshot(ctx, res.Season)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(entries) != 3 || entries[2].Code != "FR" || entries[2].Clicks != 3000 {
		t.Fatalf("unexpected snapshot %+v", entries)
	}

	if _, err := env.seasons.Leaderboard(ctx, "Season-1999-01-01"); !errors.Is(err, domain.ErrSeasonMissing) {
		t.Fatalf("expected missing season, got %v", err)
	}
}

func TestWeeklyResetKeepsLiveChallenges(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 5000, "FR": 3000})
	ctx := context.Background()

	pending, _ := env.duels.Create(ctx, "US", "FR", 10)
	done, _ := env.duels.Create(ctx, "FR", "US", 10)
	env.duels.Accept(ctx, done.Challenge.ID, "US")
	env.duels.ForceSettle(ctx, done.Challenge.ID)

	env.clock.Advance(8 * 24 * time.Hour)
	res, err := env.seasons.WeeklyReset(ctx)
	if err != nil {
		t.Fatalf("weekly reset: %v", err)
	}
	if res.ArchivedRows != 1 {
		t.Fatalf("expected one archived challenge, got %d", res.ArchivedRows)
	}
	c, _ := env.store.Ledger().Challenge(ctx, pending.Challenge.ID)
	if c.Status != domain.ChallengePending {
		t.Fatalf("pending challenge must survive reset, got %s", c.Status)
	}
	evt, ok := env.pub.last(domain.EventSeasonReset)
	if !ok || evt.Data.(domain.SeasonResetData).Season != "Season-2026-03-10" {
		t.Fatalf("expected season reset event, got %+v", evt)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	raw := []byte(`[{"rank":1,"country_code":"US","clicks":5000}]`)
	blob, err := compress(raw)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	got, err := decompress(blob)
	if err != nil || string(got) != string(raw) {
		t.Fatalf("round trip mismatch %q err=%v", got, err)
	}
	if hashState(raw) == hashState(append(raw, ' ')) {
		t.Fatal("hash must change with content")
	}
}
