package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
)

func TestDuelFullLifecycle(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 5000, "FR": 3000})
	ctx := context.Background()
	before := env.total(t)

	created, err := env.duels.Create(ctx, "US", "fr", 1000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Challenge.ID
	if env.balance(t, "US") != 4000 {
		t.Fatalf("expected challenger escrow, got %d", env.balance(t, "US"))
	}

	if _, err := env.duels.Accept(ctx, id, "FR"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if env.balance(t, "FR") != 2000 {
		t.Fatalf("expected challenged escrow, got %d", env.balance(t, "FR"))
	}
	if got := env.total(t) + 2*1000; got != before {
		t.Fatalf("balances plus escrow must be conserved: %d != %d", got, before)
	}

	for i := 0; i < 12; i++ {
		if _, err := env.duels.RecordClick(ctx, id, "US"); err != nil {
			t.Fatalf("us click: %v", err)
		}
	}
	for i := 0; i < 7; i++ {
		if _, err := env.duels.RecordClick(ctx, id, "FR"); err != nil {
			t.Fatalf("fr click: %v", err)
		}
	}

	env.clock.Advance(31 * time.Second)
	if _, err := env.duels.RecordClick(ctx, id, "US"); !errors.Is(err, domain.ErrDuelExpired) {
		t.Fatalf("expected expired duel, got %v", err)
	}
	if env.balance(t, "US") != 6000 || env.balance(t, "FR") != 2000 {
		t.Fatalf("unexpected payout US=%d FR=%d", env.balance(t, "US"), env.balance(t, "FR"))
	}
	if env.total(t) != before {
		t.Fatalf("settlement must conserve clicks")
	}

	res, err := env.duels.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Winner != "US" || res.Prize != 2000 || res.Tallies.Challenger != 12 || res.Tallies.Challenged != 7 {
		t.Fatalf("unexpected result %+v", res)
	}

	want := []string{
		domain.EventNewChallenge, domain.EventRankingUpdate,
		domain.EventChallengeStart, domain.EventRankingUpdate,
		domain.EventChallengeEnd, domain.EventRankingUpdate,
	}
	if got := env.pub.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected events %v", got)
	}
	evt, _ := env.pub.last(domain.EventChallengeEnd)
	end := evt.Data.(domain.ChallengeEndData)
	if end.Winner != "US" || end.Prize != 2000 || end.Tallies != (domain.Tallies{Challenger: 12, Challenged: 7}) {
		t.Fatalf("unexpected challengeEnd %+v", end)
	}

	us, _ := env.store.Ledger().Stats(ctx, "US")
	fr, _ := env.store.Ledger().Stats(ctx, "FR")
	if us.ChallengesWon != 1 || fr.ChallengesLost != 1 {
		t.Fatalf("unexpected stats us=%+v fr=%+v", us, fr)
	}
}

func TestDuelSettlementTable(t *testing.T) {
	cases := []struct {
		name       string
		challenger int
		challenged int
		winner     string
		balA       int64
		balB       int64
		prize      int64
	}{
		{"challenger wins", 5, 3, "AA", 1100, 900, 200},
		{"tie refunds", 3, 3, constants.TieWinner, 1000, 1000, 100},
		{"challenged wins", 0, 1, "BB", 900, 1100, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			env.seed(t, map[string]int64{"AA": 1000, "BB": 1000})
			ctx := context.Background()

			created, err := env.duels.Create(ctx, "AA", "BB", 100)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			id := created.Challenge.ID
			if _, err := env.duels.Accept(ctx, id, "BB"); err != nil {
				t.Fatalf("accept: %v", err)
			}
			for i := 0; i < tc.challenger; i++ {
				env.duels.RecordClick(ctx, id, "AA")
			}
			for i := 0; i < tc.challenged; i++ {
				env.duels.RecordClick(ctx, id, "BB")
			}
			env.clock.Advance(constants.DuelDuration)

			res, err := env.duels.End(ctx, id, "BB")
			if err != nil {
				t.Fatalf("end: %v", err)
			}
			if res.Winner != tc.winner || res.Prize != tc.prize {
				t.Fatalf("expected %s prize %d, got %+v", tc.winner, tc.prize, res)
			}
			if a, b := env.balance(t, "AA"), env.balance(t, "BB"); a != tc.balA || b != tc.balB {
				t.Fatalf("expected balances %d/%d, got %d/%d", tc.balA, tc.balB, a, b)
			}
			again, err := env.duels.End(ctx, id, "AA")
			if err != nil || again.Winner != tc.winner {
				t.Fatalf("second end must return the same result, got %+v err=%v", again, err)
			}
			if a := env.balance(t, "AA"); a != tc.balA {
				t.Fatalf("settlement paid twice: %d", a)
			}
		})
	}
}

func TestDuelRejections(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 5000, "FR": 3000, "DE": 50, "GB": 10})
	ctx := context.Background()

	createCases := []struct {
		name       string
		challenger string
		challenged string
		bet        int64
		want       error
	}{
		{"zero bet", "US", "FR", 0, domain.ErrInvalidAmount},
		{"self", "US", "us", 10, domain.ErrSelfTarget},
		{"missing opponent", "US", "", 10, domain.ErrMissingTarget},
		{"unknown opponent", "US", "ZZ", 10, domain.ErrUnknownCountry},
		{"insufficient", "GB", "FR", 100, domain.ErrInsufficient},
	}
	for _, tc := range createCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.duels.Create(ctx, tc.challenger, tc.challenged, tc.bet); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if env.balance(t, "GB") != 10 {
		t.Fatal("rejected create must not debit")
	}

	created, err := env.duels.Create(ctx, "US", "DE", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Challenge.ID

	if _, err := env.duels.Accept(ctx, id, "FR"); !errors.Is(err, domain.ErrWrongAcceptor) {
		t.Fatalf("expected wrong acceptor, got %v", err)
	}
	if _, err := env.duels.Accept(ctx, id, "DE"); !errors.Is(err, domain.ErrInsufficient) {
		t.Fatalf("expected insufficient acceptor, got %v", err)
	}
	if _, err := env.duels.Accept(ctx, id+99, "DE"); !errors.Is(err, domain.ErrNotPending) {
		t.Fatalf("expected unknown challenge, got %v", err)
	}
	if _, err := env.duels.RecordClick(ctx, id, "US"); !errors.Is(err, domain.ErrDuelNotActive) {
		t.Fatalf("pending challenge takes no clicks, got %v", err)
	}

	env.seed(t, map[string]int64{"DE": 100})
	if _, err := env.duels.Accept(ctx, id, "de"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.duels.Accept(ctx, id, "DE"); !errors.Is(err, domain.ErrNotPending) {
		t.Fatalf("expected already accepted, got %v", err)
	}
	if _, err := env.duels.RecordClick(ctx, id, "FR"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected non participant, got %v", err)
	}
	if _, err := env.duels.End(ctx, id, "US"); !errors.Is(err, domain.ErrDuelInProgress) {
		t.Fatalf("expected in progress, got %v", err)
	}
	if _, err := env.duels.End(ctx, id, "FR"); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected non participant end, got %v", err)
	}
}

func TestDuelTierWarning(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 50000, "FR": 500, "DE": 40000})
	ctx := context.Background()

	created, err := env.duels.Create(ctx, "US", "FR", 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TierWarning == "" {
		t.Fatal("expected tier warning for Gold vs Bronze")
	}
	created, err = env.duels.Create(ctx, "US", "DE", 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TierWarning != "" {
		t.Fatalf("unexpected warning %q", created.TierWarning)
	}
}

func TestDuelSweepSettlesAndForgets(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 1000, "FR": 1000})
	ctx := context.Background()

	created, _ := env.duels.Create(ctx, "US", "FR", 100)
	id := created.Challenge.ID
	env.duels.Accept(ctx, id, "FR")
	env.duels.RecordClick(ctx, id, "FR")

	env.duels.Sweep(ctx)
	if res, _ := env.duels.Result(ctx, id); res.Status != domain.ChallengeActive || res.RemainingMs != constants.DuelDuration.Milliseconds() {
		t.Fatalf("sweep must leave a live duel alone, got %+v", res)
	}

	env.clock.Advance(constants.DuelDuration)
	env.duels.Sweep(ctx)
	if env.balance(t, "FR") != 1100 {
		t.Fatalf("expected sweep payout, got %d", env.balance(t, "FR"))
	}

	env.clock.Advance(constants.DuelResultRetention)
	env.duels.Sweep(ctx)
	if env.duels.session(id) != nil {
		t.Fatal("settled session should be discarded after retention")
	}
	res, err := env.duels.Result(ctx, id)
	if err != nil {
		t.Fatalf("durable result: %v", err)
	}
	if res.Status != domain.ChallengeCompleted || res.Winner != "FR" || res.Prize != 200 || res.Tallies.Challenged != 1 {
		t.Fatalf("unexpected durable result %+v", res)
	}
	if _, err := env.duels.Result(ctx, id+1); !errors.Is(err, domain.ErrChallengeMissing) {
		t.Fatalf("expected missing challenge, got %v", err)
	}
	if _, err := env.duels.RecordClick(ctx, id, "FR"); !errors.Is(err, domain.ErrDuelNotActive) {
		t.Fatalf("expected inactive duel, got %v", err)
	}
}

func TestPendingChallengeExpiry(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	env.seed(t, map[string]int64{"US": 1000, "FR": 1000})
	ctx := context.Background()

	created, _ := env.duels.Create(ctx, "US", "FR", 300)
	env.duels.Sweep(ctx)
	if env.balance(t, "US") != 700 {
		t.Fatal("young pending challenge must stay escrowed")
	}

	env.clock.Advance(2 * time.Hour)
	env.duels.Sweep(ctx)
	if env.balance(t, "US") != 1000 {
		t.Fatalf("expected refund, got %d", env.balance(t, "US"))
	}
	c, _ := env.store.Ledger().Challenge(ctx, created.Challenge.ID)
	if c.Status != domain.ChallengeExpired {
		t.Fatalf("expected expired, got %s", c.Status)
	}
	if _, err := env.duels.Accept(ctx, c.ID, "FR"); !errors.Is(err, domain.ErrNotPending) {
		t.Fatalf("expired challenge cannot be accepted, got %v", err)
	}
	if n, _ := env.duels.ExpirePending(ctx); n != 0 {
		t.Fatalf("expiry must not refund twice, got %d", n)
	}
}

func TestListForCountry(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 1000, "FR": 1000, "DE": 1000})
	ctx := context.Background()

	env.duels.Create(ctx, "US", "FR", 10)
	env.duels.Create(ctx, "DE", "US", 10)
	env.duels.Create(ctx, "DE", "FR", 10)

	list, err := env.duels.ListForCountry(ctx, "us")
	if err != nil || len(list) != 2 {
		t.Fatalf("expected two challenges for US, got %+v err=%v", list, err)
	}
}

func TestConcurrentDuelClicks(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 1000, "FR": 1000})
	ctx := context.Background()

	created, _ := env.duels.Create(ctx, "US", "FR", 100)
	id := created.Challenge.ID
	env.duels.Accept(ctx, id, "FR")

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(i int) {
			country := "US"
			if i%2 == 0 {
				country = "FR"
			}
			env.duels.RecordClick(ctx, id, country)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}

	res, _ := env.duels.Result(ctx, id)
	if res.Tallies.Challenger != 25 || res.Tallies.Challenged != 25 {
		t.Fatalf("lost clicks: %+v", res.Tallies)
	}
}

func TestResultSettlesClosedWindow(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 5000, "FR": 3000})
	ctx := context.Background()

	created, _ := env.duels.Create(ctx, "US", "FR", 1000)
	id := created.Challenge.ID
	env.duels.Accept(ctx, id, "FR")
	env.duels.RecordClick(ctx, id, "US")

	env.clock.Advance(constants.DuelDuration + time.Second)
	res, err := env.duels.Result(ctx, id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Status != domain.ChallengeCompleted || res.Winner != "US" || res.Prize != 2000 {
		t.Fatalf("expected settled result, got %+v", res)
	}
	if env.balance(t, "US") != 6000 || env.balance(t, "FR") != 2000 {
		t.Fatalf("unexpected payout US=%d FR=%d", env.balance(t, "US"), env.balance(t, "FR"))
	}
	if _, ok := env.pub.last(domain.EventChallengeEnd); !ok {
		t.Fatal("expected challengeEnd event")
	}

	again, err := env.duels.Result(ctx, id)
	if err != nil || again.Winner != "US" || env.balance(t, "US") != 6000 {
		t.Fatalf("second read must not pay twice: %+v %v US=%d", again, err, env.balance(t, "US"))
	}
}

func TestRecordClickReturnsOwnTally(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 1000, "FR": 1000})
	ctx := context.Background()

	created, _ := env.duels.Create(ctx, "US", "FR", 100)
	id := created.Challenge.ID
	env.duels.Accept(ctx, id, "FR")

	env.duels.RecordClick(ctx, id, "US")
	env.duels.RecordClick(ctx, id, "US")
	click, err := env.duels.RecordClick(ctx, id, "fr")
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if click.Clicks != 1 || click.Tallies.Challenger != 2 || click.Tallies.Challenged != 1 {
		t.Fatalf("unexpected click %+v", click)
	}
	click, _ = env.duels.RecordClick(ctx, id, "US")
	if click.Clicks != 3 {
		t.Fatalf("challenger should see its own tally, got %+v", click)
	}
}

func TestSweepDoesNotBlockLookups(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seed(t, map[string]int64{"US": 1000, "FR": 1000, "DE": 1000, "JP": 1000})
	ctx := context.Background()

	busy, _ := env.duels.Create(ctx, "US", "FR", 100)
	env.duels.Accept(ctx, busy.Challenge.ID, "FR")
	other, _ := env.duels.Create(ctx, "DE", "JP", 100)
	env.duels.Accept(ctx, other.Challenge.ID, "JP")

	s := env.duels.session(busy.Challenge.ID)
	s.mu.Lock()
	swept := make(chan struct{})
	go func() {
		env.duels.Sweep(ctx)
		close(swept)
	}()
	time.Sleep(20 * time.Millisecond)

	found := make(chan bool, 1)
	go func() { found <- env.duels.session(other.Challenge.ID) != nil }()
	select {
	case ok := <-found:
		if !ok {
			t.Fatal("session lookup returned nothing")
		}
	case <-time.After(time.Second):
		s.mu.Unlock()
		t.Fatal("session lookup blocked behind a busy session")
	}
	s.mu.Unlock()
	<-swept
}
