package duel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	nchess "github.com/corentings/chess/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store, err := NewStore(rdb, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, mr
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	saved := sessionPayload{
		ID:           "abc",
		Mode:         string(ModeProvider),
		MovesUCI:     []string{"e2e4", "e7e5"},
		InvalidMoves: 1,
		Generation:   2,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(sessionKey("abc")); ttl <= 0 {
		t.Fatalf("session key TTL = %v, want > 0", ttl)
	}

	loaded, err := store.load(ctx, "abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != saved.ID || loaded.Mode != saved.Mode || loaded.Generation != 2 || loaded.InvalidMoves != 1 {
		t.Fatalf("loaded = %+v, want %+v", loaded, saved)
	}
	if len(loaded.MovesUCI) != 2 || loaded.MovesUCI[0] != "e2e4" || loaded.MovesUCI[1] != "e7e5" {
		t.Fatalf("loaded moves = %v, want [e2e4 e7e5]", loaded.MovesUCI)
	}
	if !loaded.StartedAt.Equal(saved.StartedAt) {
		t.Fatalf("loaded startedAt = %v, want %v", loaded.StartedAt, saved.StartedAt)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.load(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("load missing = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.save(ctx, sessionPayload{ID: "gone"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.delete(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.load(ctx, "gone"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("load deleted = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_RequiresClient(t *testing.T) {
	if _, err := NewStore(nil, time.Hour); err == nil {
		t.Fatal("NewStore accepted a nil client")
	}
}

func TestSessionPayload_RoundTripThroughSession(t *testing.T) {
	sess := newSession("round", ModeRandom)
	sess.mu.Lock()
	for _, uci := range []string{"e2e4", "e7e5", "g1f3"} {
		mv := matchHumanMove(sess.game, Move{From: uci[:2], To: uci[2:4]})
		if mv == nil {
			t.Fatalf("move %s not matched", uci)
		}
		if err := sess.applyMoveLocked(mv); err != nil {
			t.Fatalf("apply %s: %v", uci, err)
		}
	}
	sess.invalidMoves = 2
	sess.generation = 3
	payload := sess.payloadLocked()
	sess.mu.Unlock()

	restored, err := sessionFromPayload(payload)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored.mu.Lock()
	snap := restored.snapshotLocked()
	restored.mu.Unlock()

	if snap.ID != "round" || snap.Mode != ModeRandom {
		t.Fatalf("restored identity = %s/%s", snap.ID, snap.Mode)
	}
	if len(snap.MovesUCI) != 3 || snap.MovesUCI[2] != "g1f3" {
		t.Fatalf("restored moves = %v", snap.MovesUCI)
	}
	if len(snap.MovesSAN) != 3 || snap.MovesSAN[2] != "Nf3" {
		t.Fatalf("restored san = %v", snap.MovesSAN)
	}
	if snap.InvalidMoves != 2 || snap.Generation != 3 {
		t.Fatalf("restored counters = invalid %d gen %d", snap.InvalidMoves, snap.Generation)
	}
	if snap.Turn != nchess.Black || snap.Phase != PhaseWaitingForAutomated {
		t.Fatalf("restored turn/phase = %v/%s", snap.Turn, snap.Phase)
	}
}

func TestSessionFromPayload_OverrideSurvives(t *testing.T) {
	payload := sessionPayload{
		ID:       "forced",
		Mode:     string(ModeProvider),
		MovesUCI: []string{"e2e4"},
		Override: &Status{State: StateForfeit, Winner: nchess.White, Reason: ReasonForfeit},
	}
	restored, err := sessionFromPayload(payload)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored.mu.Lock()
	snap := restored.snapshotLocked()
	restored.mu.Unlock()
	if snap.Phase != PhaseTerminal || snap.Status.State != StateForfeit {
		t.Fatalf("restored status = %+v, want forfeit", snap.Status)
	}
}

func TestSessionFromPayload_CorruptMoves(t *testing.T) {
	if _, err := sessionFromPayload(sessionPayload{ID: "bad", MovesUCI: []string{"zz99"}}); err == nil {
		t.Fatal("restore of corrupt move list succeeded")
	}
}
