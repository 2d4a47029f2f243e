package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clickwar/internal/config"
	"clickwar/internal/constants"
	"clickwar/internal/database"
	"clickwar/internal/db"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(evt domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last(typ string) (domain.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == typ {
			return p.events[i], true
		}
	}
	return domain.Event{}, false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	sqlDB       *sql.DB
	store       *repository.Store
	clock       *fakeClock
	pub         *recordingPublisher
	cooldowns   *CooldownTracker
	shields     *ShieldTracker
	leaderboard *LeaderboardService
	missiles    *MissileEngine
	duels       *DuelEngine
	clicks      *ClickService
	seasons     *SeasonService
}

func newTestEnv(t *testing.T, pendingTTL time.Duration) *testEnv {
	t.Helper()
	cfg := &config.Config{
		DBDriver:            "sqlite",
		DBPath:              filepath.Join(t.TempDir(), "game.db"),
		MissileCooldown:     constants.DefaultMissileCooldown,
		PendingChallengeTTL: pendingTTL,
	}
	logger := zerolog.Nop()
	sqlDB, err := database.New(cfg, logger)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	queries := db.New(sqlDB)
	env := &testEnv{
		sqlDB: sqlDB,
		store: repository.NewStore(sqlDB, queries, logger),
		clock: &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
		pub:   &recordingPublisher{},
	}
	now := env.clock.Now
	env.cooldowns = NewCooldownTracker(env.store, cfg, now, logger)
	env.shields = NewShieldTracker(env.store, now, logger)
	env.leaderboard = NewLeaderboardService(env.store, env.shields, env.pub, now, logger)
	env.missiles = NewMissileEngine(env.store, env.cooldowns, env.shields, env.leaderboard, env.pub, now, logger)
	env.duels = NewDuelEngine(env.store, env.leaderboard, env.pub, cfg, now, logger)
	env.clicks = NewClickService(env.store, env.pub, now, logger)
	env.seasons = NewSeasonService(repository.NewSeasonRepository(sqlDB, queries, logger), env.store, env.cooldowns, env.pub, now, logger)
	return env
}

func (e *testEnv) seed(t *testing.T, balances map[string]int64) {
	t.Helper()
	for code, clicks := range balances {
		if _, err := e.store.Ledger().AddClicks(context.Background(), code, clicks, e.clock.Now()); err != nil {
			t.Fatalf("seed %s: %v", code, err)
		}
	}
}

func (e *testEnv) balance(t *testing.T, code string) int64 {
	t.Helper()
	b, err := e.store.Ledger().Balance(context.Background(), code)
	if err != nil {
		t.Fatalf("balance %s: %v", code, err)
	}
	if b == nil {
		return 0
	}
	return b.Clicks
}

func (e *testEnv) total(t *testing.T) int64 {
	t.Helper()
	n, err := e.store.Ledger().GlobalCount(context.Background())
	if err != nil {
		t.Fatalf("global count: %v", err)
	}
	return n
}
