package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clickwar/internal/config"
	"clickwar/internal/database"
	"clickwar/internal/db"
	"clickwar/internal/domain"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "ledger.db")}
	sqlDB, err := database.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return NewStore(sqlDB, db.New(sqlDB), zerolog.Nop()), sqlDB
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestAddClicksCreatesLazily(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := store.Ledger()

	b, err := l.Balance(ctx, "FR")
	if err != nil || b != nil {
		t.Fatalf("expected no balance yet, got %+v err=%v", b, err)
	}
	if got, err := l.AddClicks(ctx, "FR", 1, t0); err != nil || got != 1 {
		t.Fatalf("first click: got %d err=%v", got, err)
	}
	if got, err := l.AddClicks(ctx, "FR", 2, t0); err != nil || got != 3 {
		t.Fatalf("second click: got %d err=%v", got, err)
	}
	if _, err := l.AddClicks(ctx, "US", 10, t0); err != nil {
		t.Fatalf("us click: %v", err)
	}
	total, err := l.GlobalCount(ctx)
	if err != nil || total != 13 {
		t.Fatalf("expected global 13, got %d err=%v", total, err)
	}
	all, err := l.Balances(ctx)
	if err != nil || len(all) != 2 || all[0].Code != "US" {
		t.Fatalf("unexpected ordering %+v err=%v", all, err)
	}
}

func TestDebitIsConditional(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := store.Ledger()

	if _, err := l.Debit(ctx, "DE", 10); !errors.Is(err, domain.ErrInsufficient) {
		t.Fatalf("expected insufficient for missing row, got %v", err)
	}
	l.AddClicks(ctx, "DE", 40, t0)
	if _, err := l.Debit(ctx, "DE", 50); !errors.Is(err, domain.ErrInsufficient) {
		t.Fatalf("expected insufficient, got %v", err)
	}
	if got, err := l.Debit(ctx, "DE", 40); err != nil || got != 0 {
		t.Fatalf("expected exact debit to 0, got %d err=%v", got, err)
	}
}

func TestDamageClampsAtZero(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := store.Ledger()

	if _, err := l.Damage(ctx, "BR", 5); !errors.Is(err, domain.ErrUnknownTarget) {
		t.Fatalf("expected unknown target, got %v", err)
	}
	l.AddClicks(ctx, "BR", 7, t0)
	if got, err := l.Damage(ctx, "BR", 100); err != nil || got != 0 {
		t.Fatalf("expected clamp to 0, got %d err=%v", got, err)
	}
}

func TestInTxRollsBack(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Ledger().AddClicks(ctx, "US", 100, t0)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(l *Ledger) error {
		if _, err := l.Debit(ctx, "US", 60); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	b, _ := store.Ledger().Balance(ctx, "US")
	if b.Clicks != 100 {
		t.Fatalf("expected rollback to 100, got %d", b.Clicks)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.Ledger().AddClicks(ctx, "JP", 500, t0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.InTx(ctx, func(l *Ledger) error {
				_, err := l.Debit(ctx, "JP", 50)
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrInsufficient) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	b, _ := store.Ledger().Balance(ctx, "JP")
	if succeeded != 10 || b.Clicks != 0 {
		t.Fatalf("expected 10 debits to 0, got %d debits balance %d", succeeded, b.Clicks)
	}
}

func TestCooldownAndShieldRecords(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := store.Ledger()

	last, err := l.LastLaunch(ctx, "JP")
	if err != nil || last != nil {
		t.Fatalf("expected no launch, got %v err=%v", last, err)
	}
	if err := l.SetLastLaunch(ctx, "JP", &t0); err != nil {
		t.Fatalf("set launch: %v", err)
	}
	last, _ = l.LastLaunch(ctx, "JP")
	if last == nil || !last.Equal(t0) {
		t.Fatalf("expected %s, got %v", t0, last)
	}
	n, err := l.ClearLaunchesBefore(ctx, t0.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 cleared, got %d err=%v", n, err)
	}
	if last, _ = l.LastLaunch(ctx, "JP"); last != nil {
		t.Fatalf("expected cleared launch, got %v", last)
	}

	if err := l.PutShield(ctx, domain.Shield{Code: "BR", Active: true, ExpiresAt: t0.Add(time.Hour)}); err != nil {
		t.Fatalf("put shield: %v", err)
	}
	if n, _ := l.ClearExpiredShields(ctx, t0); n != 0 {
		t.Fatalf("live shield must survive sweep, cleared %d", n)
	}
	if n, _ := l.ClearExpiredShields(ctx, t0.Add(time.Hour)); n != 1 {
		t.Fatalf("expected expired shield cleared, got %d", n)
	}
	s, _ := l.Shield(ctx, "BR")
	if s == nil || s.Active {
		t.Fatalf("expected inactive shield, got %+v", s)
	}
}

func TestChallengeLifecycleRows(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := store.Ledger()

	id, err := l.InsertChallenge(ctx, domain.Challenge{
		ChallengerCountry: "US", ChallengedCountry: "FR", BetAmount: 100, CreatedAt: t0,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := l.Challenge(ctx, id+100); !errors.Is(err, domain.ErrChallengeMissing) {
		t.Fatalf("expected missing, got %v", err)
	}
	if ok, _ := l.Complete(ctx, id, "US", domain.Tallies{}, t0); ok {
		t.Fatal("pending challenge must not complete")
	}
	if ok, err := l.Activate(ctx, id, t0); !ok || err != nil {
		t.Fatalf("activate: ok=%v err=%v", ok, err)
	}
	if ok, _ := l.Activate(ctx, id, t0); ok {
		t.Fatal("second activate must fail")
	}
	open, _ := l.OpenChallenges(ctx, "FR")
	if len(open) != 1 || open[0].Status != domain.ChallengeActive {
		t.Fatalf("unexpected open challenges %+v", open)
	}
	if n, _ := l.ArchiveChallengesBefore(ctx, t0.Add(time.Hour)); n != 0 {
		t.Fatalf("archive must skip active challenges, archived %d", n)
	}
	if ok, err := l.Complete(ctx, id, "US", domain.Tallies{Challenger: 12, Challenged: 7}, t0.Add(time.Minute)); !ok || err != nil {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}
	c, _ := l.Challenge(ctx, id)
	if c.Status != domain.ChallengeCompleted || c.WinnerCountry != "US" || *c.ChallengerClicks != 12 {
		t.Fatalf("unexpected completed row %+v", c)
	}
	if n, _ := l.ArchiveChallengesBefore(ctx, t0.Add(time.Hour)); n != 1 {
		t.Fatalf("expected completed challenge archived, got %d", n)
	}
}

func TestSeasonSaveAndRead(t *testing.T) {
	store, sqlDB := newTestStore(t)
	ctx := context.Background()
	repo := NewSeasonRepository(sqlDB, db.New(sqlDB), zerolog.Nop())

	store.Ledger().AddClicks(ctx, "US", 5000, t0)
	store.Ledger().AddClicks(ctx, "FR", 3000, t0)
	store.Ledger().AddStats(ctx, "FR", domain.StatsDelta{ChallengesWon: 2}, t0)

	latest, err := repo.Latest(ctx)
	if err != nil || latest != "" {
		t.Fatalf("expected no season, got %q err=%v", latest, err)
	}
	standings, err := repo.CurrentStandings(ctx)
	if err != nil || len(standings) != 2 || standings[1].ChallengesWon != 2 {
		t.Fatalf("unexpected standings %+v err=%v", standings, err)
	}
	snap := domain.SeasonSnapshot{Blob: []byte{1, 2, 3}, RawSize: 3, Hash: "abc"}
	if err := repo.Save(ctx, "Season-2026-03-01", standings, snap, t0); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, "Season-2026-03-01", standings, snap, t0); err != nil {
		t.Fatalf("re-save must be idempotent: %v", err)
	}
	latest, _ = repo.Latest(ctx)
	if latest != "Season-2026-03-01" {
		t.Fatalf("unexpected latest %q", latest)
	}
	ranks, _ := repo.Rankings(ctx, latest)
	if len(ranks) != 2 || ranks[0].Code != "US" || ranks[0].Tier.Name != "Silver" {
		t.Fatalf("unexpected rankings %+v", ranks)
	}
	got, err := repo.Snapshot(ctx, latest)
	if err != nil || got.Hash != "abc" || len(got.ID) == 0 {
		t.Fatalf("unexpected snapshot %+v err=%v", got, err)
	}
	if _, err := repo.Snapshot(ctx, "nope"); !errors.Is(err, domain.ErrSeasonMissing) {
		t.Fatalf("expected missing season, got %v", err)
	}
}
