package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyeon-dev/chessduel/internal/domain"
)

func duelRecord(key, mode, result, method string, moves int, ended time.Time) *domain.DuelGame {
	uci := make([]string, moves)
	for i := range uci {
		uci[i] = "e2e4"
	}
	return &domain.DuelGame{
		SessionKey:   key,
		Mode:         mode,
		Result:       result,
		ResultMethod: method,
		MovesUCI:     uci,
		StartedAt:    ended.Add(-time.Minute),
		EndedAt:      ended,
		Duration:     time.Minute,
	}
}

func TestMemoryRepository_InsertAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	id, err := repo.InsertDuel(ctx, duelRecord("s1:0", "provider", "white", "checkmate", 8, now))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}

	got, err := repo.GetDuel(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.ID != id || got.SessionKey != "s1:0" || got.Result != "white" {
		t.Fatalf("got = %+v", got)
	}

	bySession, err := repo.GetDuelBySession(ctx, "s1:0")
	if err != nil {
		t.Fatalf("get by session: %v", err)
	}
	if bySession == nil || bySession.ID != id {
		t.Fatalf("by session = %+v", bySession)
	}
}

func TestMemoryRepository_MissingReturnsNil(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	got, err := repo.GetDuel(ctx, 42)
	if err != nil || got != nil {
		t.Fatalf("get missing = %+v, %v, want nil, nil", got, err)
	}
	bySession, err := repo.GetDuelBySession(ctx, "nope:0")
	if err != nil || bySession != nil {
		t.Fatalf("get by session = %+v, %v, want nil, nil", bySession, err)
	}
}

func TestMemoryRepository_DuplicateSessionKey(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	if _, err := repo.InsertDuel(ctx, duelRecord("dup:0", "provider", "white", "forfeit", 5, now)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.InsertDuel(ctx, duelRecord("dup:0", "provider", "draw", "move_cap", 4, now)); !errors.Is(err, ErrDuplicateDuel) {
		t.Fatalf("duplicate insert = %v, want ErrDuplicateDuel", err)
	}
	// The same session under its next generation is a distinct game.
	if _, err := repo.InsertDuel(ctx, duelRecord("dup:1", "provider", "draw", "move_cap", 4, now)); err != nil {
		t.Fatalf("next generation insert: %v", err)
	}
}

func TestMemoryRepository_InsertCopiesRecord(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rec := duelRecord("copy:0", "provider", "white", "checkmate", 3, time.Now())

	id, err := repo.InsertDuel(ctx, rec)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rec.Result = "mutated"

	got, err := repo.GetDuel(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Result != "white" {
		t.Fatalf("stored record mutated through caller's pointer: %+v", got)
	}
}

func TestMemoryRepository_RecentOrderAndLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		key := string(rune('a'+i)) + ":0"
		if _, err := repo.InsertDuel(ctx, duelRecord(key, "random", "draw", "stalemate", i+1, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	recent, err := repo.GetRecentDuels(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d records, want 3", len(recent))
	}
	if recent[0].SessionKey != "e:0" || recent[1].SessionKey != "d:0" || recent[2].SessionKey != "c:0" {
		t.Fatalf("recent order = %s, %s, %s", recent[0].SessionKey, recent[1].SessionKey, recent[2].SessionKey)
	}

	all, err := repo.GetRecentDuels(ctx, 0)
	if err != nil {
		t.Fatalf("recent with no limit: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("all = %d records, want 5", len(all))
	}
}

func TestMemoryRepository_Stats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	inserts := []*domain.DuelGame{
		duelRecord("p1:0", "provider", "white", "checkmate", 10, base),
		duelRecord("p2:0", "provider", "white", "forfeit", 6, base.Add(time.Minute)),
		duelRecord("p3:0", "provider", "black", "checkmate", 12, base.Add(2*time.Minute)),
		duelRecord("p4:0", "provider", "draw", "threefold_repetition", 8, base.Add(3*time.Minute)),
		duelRecord("r1:0", "random", "draw", "move_cap", 4, base.Add(4*time.Minute)),
	}
	for _, rec := range inserts {
		if _, err := repo.InsertDuel(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.SessionKey, err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %d modes, want 2", len(stats))
	}

	prov := stats[0]
	if prov.Mode != "provider" {
		t.Fatalf("first mode = %s, want provider", prov.Mode)
	}
	if prov.Games != 4 || prov.HumanWins != 2 || prov.AIWins != 1 || prov.Draws != 1 || prov.Forfeits != 1 {
		t.Fatalf("provider stats = %+v", prov)
	}
	if prov.AvgMoves != 9 {
		t.Fatalf("provider avg moves = %v, want 9", prov.AvgMoves)
	}
	if !prov.LastFinished.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("provider last finished = %v", prov.LastFinished)
	}

	rnd := stats[1]
	if rnd.Mode != "random" || rnd.Games != 1 || rnd.Draws != 1 {
		t.Fatalf("random stats = %+v", rnd)
	}
}

func TestMemoryRepository_EmptyStats(t *testing.T) {
	repo := NewMemoryRepository()
	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("stats on empty repo = %+v", stats)
	}
	recent, err := repo.GetRecentDuels(context.Background(), 10)
	if err != nil || len(recent) != 0 {
		t.Fatalf("recent on empty repo = %+v, %v", recent, err)
	}
}
