package duel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyeon-dev/chessduel/internal/archive"
	"github.com/hyeon-dev/chessduel/internal/domain"
	"github.com/hyeon-dev/chessduel/internal/provider"
)

// Config tunes a Controller. Zero limits fall back to the package defaults.
type Config struct {
	DefaultMode OpponentMode
	Limits      Limits
	RandomSeed  int64
	TurnBuffer  int
}

// turnEvent hands one automated turn to the pump. The generation pins the
// event to the session state that produced it.
type turnEvent struct {
	sessionID  string
	generation uint64
}

// Controller is the top-level session state machine. All session mutation
// funnels through it: human moves synchronously, automated moves through the
// single turn pump.
type Controller struct {
	cfg     Config
	neg     *negotiator
	store   *Store
	archive archive.Repository
	bus     *bus
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session

	turns    chan turnEvent
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewController(cfg Config, p MoveProvider, store *Store, repo archive.Repository, logger *zap.Logger) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("archive repository is required")
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = ModeProvider
	}
	if cfg.DefaultMode != ModeProvider && cfg.DefaultMode != ModeRandom {
		return nil, fmt.Errorf("unknown opponent mode %q", cfg.DefaultMode)
	}
	if cfg.DefaultMode == ModeProvider && p == nil {
		return nil, fmt.Errorf("move provider is required in provider mode")
	}
	if cfg.TurnBuffer <= 0 {
		cfg.TurnBuffer = 64
	}
	cfg.Limits = cfg.Limits.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:      cfg,
		neg:      newNegotiator(p, newLockedRand(cfg.RandomSeed), logger),
		store:    store,
		archive:  repo,
		bus:      newBus(),
		logger:   logger,
		sessions: make(map[string]*session),
		turns:    make(chan turnEvent, cfg.TurnBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.wg.Add(1)
	go c.pumpLoop()
	return c, nil
}

// Close stops the turn pump, cancels pending provider calls, and waits for
// in-flight negotiations to drain.
func (c *Controller) Close() {
	c.stopOnce.Do(func() {
		c.cancel()
	})
	c.wg.Wait()
	c.bus.close()
}

// Subscribe registers an event listener. Call the returned cancel when the
// listener goes away.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.bus.subscribe(32)
}

// CreateSession starts a fresh duel. An empty mode uses the configured
// default.
func (c *Controller) CreateSession(ctx context.Context, mode OpponentMode) (Snapshot, error) {
	if c.ctx.Err() != nil {
		return Snapshot{}, ErrClosed
	}
	if mode == "" {
		mode = c.cfg.DefaultMode
	}
	switch mode {
	case ModeProvider:
		if c.neg.provider == nil {
			return Snapshot{}, ErrNoProvider
		}
	case ModeRandom:
	default:
		return Snapshot{}, fmt.Errorf("unknown opponent mode %q", mode)
	}

	sess := newSession(uuid.NewString(), mode)
	c.mu.Lock()
	c.sessions[sess.id] = sess
	c.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.persistLocked(ctx, sess)
	snap := sess.snapshotLocked()
	c.bus.publish(Event{Type: EventState, SessionID: sess.id, Snapshot: snap})
	c.logger.Info("duel_created",
		zap.String("session", sess.id),
		zap.String("mode", string(mode)))
	return snap, nil
}

// Snapshot returns a read-only consistent view of the session.
func (c *Controller) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	sess, err := c.getSession(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// BoardState returns the current board together with a snapshot, for
// rendering.
func (c *Controller) BoardState(ctx context.Context, id string) (*nchess.Board, Snapshot, error) {
	sess, err := c.getSession(ctx, id)
	if err != nil {
		return nil, Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.game.Position().Board(), sess.snapshotLocked(), nil
}

// AttemptHumanMove applies one human half-move. Illegal attempts are free
// retries: the session is left untouched and no counter moves.
func (c *Controller) AttemptHumanMove(ctx context.Context, id string, m Move) (Snapshot, error) {
	sess, err := c.getSession(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.statusLocked().Terminal() {
		return Snapshot{}, ErrSessionFinished
	}
	if sess.game.Position().Turn() != HumanColor {
		return Snapshot{}, ErrNotYourTurn
	}
	mv := matchHumanMove(sess.game, m)
	if mv == nil {
		return Snapshot{}, fmt.Errorf("%w: %s-%s", ErrIllegalMove, m.From, m.To)
	}
	if err := c.applyAcceptedMoveLocked(ctx, sess, mv, "human"); err != nil {
		return Snapshot{}, err
	}
	return sess.snapshotLocked(), nil
}

// Reset discards the session wholesale and starts a new game under a fresh
// generation.
func (c *Controller) Reset(ctx context.Context, id string) (Snapshot, error) {
	sess, err := c.getSession(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.resetLocked()
	c.persistLocked(ctx, sess)
	snap := sess.snapshotLocked()
	c.bus.publish(Event{Type: EventState, SessionID: sess.id, Snapshot: snap})
	c.logger.Info("duel_reset",
		zap.String("session", sess.id),
		zap.Uint64("generation", sess.generation))
	return snap, nil
}

// Remove drops the session from memory and the store.
func (c *Controller) Remove(ctx context.Context, id string) error {
	sess, err := c.getSession(ctx, id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	// Strand any pending negotiation before the session disappears.
	sess.generation++
	sess.negotiating = false
	sess.thinking.Store(false)
	sess.mu.Unlock()

	c.mu.Lock()
	delete(c.sessions, sess.id)
	c.mu.Unlock()
	return c.store.delete(ctx, sess.id)
}

// Hint asks the provider's simple mode for one move token in standard
// notation. Presentational only: it never touches negotiation counters.
func (c *Controller) Hint(ctx context.Context, id string) (string, error) {
	sess, err := c.getSession(ctx, id)
	if err != nil {
		return "", err
	}
	if c.neg.provider == nil {
		return "", ErrNoProvider
	}
	sess.mu.Lock()
	if sess.statusLocked().Terminal() {
		sess.mu.Unlock()
		return "", ErrSessionFinished
	}
	fen := sess.game.FEN()
	turn := sess.game.Position().Turn()
	sess.mu.Unlock()

	token, err := c.neg.provider.SuggestToken(ctx, provider.HintRequest{
		FEN:        fen,
		SideToMove: ColorName(turn),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHintUnavailable, err)
	}
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 10 {
		return "", ErrHintUnavailable
	}
	return token, nil
}

func (c *Controller) getSession(ctx context.Context, id string) (*session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrSessionNotFound
	}
	c.mu.RLock()
	sess := c.sessions[id]
	c.mu.RUnlock()
	if sess != nil {
		return sess, nil
	}

	payload, err := c.store.load(ctx, id)
	if err != nil {
		return nil, err
	}
	restored, err := sessionFromPayload(payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing := c.sessions[id]; existing != nil {
		c.mu.Unlock()
		return existing, nil
	}
	c.sessions[id] = restored
	c.mu.Unlock()
	c.logger.Info("duel_restored",
		zap.String("session", id),
		zap.Int("moves", len(payload.MovesUCI)))

	// A session stored mid-AI-turn lost its queued turn event with the old
	// process; re-arm it.
	restored.mu.Lock()
	if !restored.statusLocked().Terminal() && restored.game.Position().Turn() == AIColor {
		c.enqueueTurnLocked(restored)
	}
	restored.mu.Unlock()
	return restored, nil
}

// applyAcceptedMoveLocked runs the shared post-acceptance pipeline: record
// the move, claim any newly claimable draw, evaluate the limit watchers,
// persist, publish, archive on terminal, and hand the turn over.
func (c *Controller) applyAcceptedMoveLocked(ctx context.Context, sess *session, mv *nchess.Move, actor string) error {
	if err := sess.applyMoveLocked(mv); err != nil {
		return err
	}
	claimEligibleDraws(sess.game)
	c.watchLimitsLocked(sess)

	st := sess.statusLocked()
	c.logger.Info("duel_move",
		zap.String("session", sess.id),
		zap.String("actor", actor),
		zap.String("uci", sess.movesUCI[len(sess.movesUCI)-1]),
		zap.String("san", sess.movesSAN[len(sess.movesSAN)-1]),
		zap.Int("ply", len(sess.movesUCI)),
		zap.String("state", string(st.State)))

	c.persistLocked(ctx, sess)
	c.publishStateLocked(sess)

	if st.Terminal() {
		c.archiveFinishedLocked(ctx, sess, st)
		return nil
	}
	if sess.game.Position().Turn() == AIColor {
		c.enqueueTurnLocked(sess)
	}
	return nil
}

// watchLimitsLocked applies the two hard caps while no override exists yet.
// The forfeit check runs first; the first writer wins and sticks until reset.
func (c *Controller) watchLimitsLocked(sess *session) {
	if sess.override != nil {
		return
	}
	if sess.invalidMoves >= c.cfg.Limits.MaxInvalidMoves {
		sess.override = &Status{State: StateForfeit, Winner: HumanColor, Reason: ReasonForfeit}
		c.logger.Info("duel_forfeit",
			zap.String("session", sess.id),
			zap.Int("invalid_moves", sess.invalidMoves))
		return
	}
	if len(sess.movesUCI) >= c.cfg.Limits.MaxGameMoves {
		sess.override = &Status{State: StateDraw, Reason: ReasonMoveCap}
		c.logger.Info("duel_move_cap",
			zap.String("session", sess.id),
			zap.Int("ply", len(sess.movesUCI)))
	}
}

// enqueueTurnLocked hands the turn to the pump, exactly one event per
// accepted move. A saturated queue falls back to a side goroutine so the
// session lock is never held against a busy pump.
func (c *Controller) enqueueTurnLocked(sess *session) {
	ev := turnEvent{sessionID: sess.id, generation: sess.generation}
	select {
	case c.turns <- ev:
		return
	default:
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case c.turns <- ev:
		case <-c.ctx.Done():
		}
	}()
}

// pumpLoop is the single consumer of turn events. It starts at most one
// negotiation per session and never blocks on the provider itself.
func (c *Controller) pumpLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.turns:
			c.startNegotiation(ev)
		}
	}
}

func (c *Controller) startNegotiation(ev turnEvent) {
	sess, err := c.getSession(c.ctx, ev.sessionID)
	if err != nil {
		c.logger.Warn("duel_turn_session_missing",
			zap.String("session", ev.sessionID),
			zap.Error(err))
		return
	}

	sess.mu.Lock()
	if sess.generation != ev.generation || sess.negotiating {
		sess.mu.Unlock()
		return
	}
	if sess.statusLocked().Terminal() || sess.game.Position().Turn() != AIColor {
		sess.mu.Unlock()
		return
	}
	sess.negotiating = true
	sess.thinking.Store(true)
	gen := sess.generation
	mode := sess.mode
	fen := sess.game.FEN()
	turn := sess.game.Position().Turn()
	legal := legalMoveStrings(sess.game)
	c.publishThinkingLocked(sess)
	sess.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.finishNegotiation(sess, gen, mode, fen, turn, legal)
	}()
}

// finishNegotiation performs the provider call off-lock, then resolves the
// outcome against the session if and only if the generation still matches.
func (c *Controller) finishNegotiation(sess *session, gen uint64, mode OpponentMode, fen string, turn nchess.Color, legal []string) {
	var proposal provider.MoveProposal
	var propErr error
	if mode == ModeProvider {
		proposal, propErr = c.neg.propose(c.ctx, fen, turn, legal)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.generation != gen {
		// The session was reset while the provider worked; this result
		// belongs to a dead generation. The new generation's flags were
		// already cleared by the reset, so nothing here may touch them.
		c.logger.Info("duel_stale_negotiation",
			zap.String("session", sess.id),
			zap.Uint64("generation", gen),
			zap.Uint64("current", sess.generation))
		return
	}

	sess.negotiating = false
	sess.thinking.Store(false)
	c.publishThinkingLocked(sess)

	if sess.statusLocked().Terminal() {
		return
	}

	var mv *nchess.Move
	var failure error
	switch {
	case mode == ModeRandom:
		mv = c.neg.fallbackMove(sess.game)
	case propErr != nil:
		failure = propErr
	default:
		mv, failure = matchProposal(sess.game, proposal)
	}

	if failure != nil {
		sess.invalidMoves++
		sess.updatedAt = time.Now()
		c.logger.Info("duel_ai_invalid",
			zap.String("session", sess.id),
			zap.Int("invalid_moves", sess.invalidMoves),
			zap.Error(failure))
		c.watchLimitsLocked(sess)
		if sess.override != nil {
			// Forfeited on this failure: the session is terminal right now
			// and the fallback move is not applied.
			c.persistLocked(c.ctx, sess)
			c.publishStateLocked(sess)
			c.archiveFinishedLocked(c.ctx, sess, sess.statusLocked())
			return
		}
		mv = c.neg.fallbackMove(sess.game)
		if mv != nil {
			c.logger.Info("duel_ai_fallback",
				zap.String("session", sess.id),
				zap.String("uci", strings.ToLower(mv.String())))
		}
	}

	if mv == nil {
		// A non-terminal position always has a legal move, so this only
		// covers a position that went terminal between checks.
		c.persistLocked(c.ctx, sess)
		c.publishStateLocked(sess)
		return
	}
	if err := c.applyAcceptedMoveLocked(c.ctx, sess, mv, "ai"); err != nil {
		c.logger.Error("duel_ai_apply_failed",
			zap.String("session", sess.id),
			zap.Error(err))
	}
}

// persistLocked writes the session through to redis. Store failures are
// logged, not fatal: memory stays authoritative and the next transition
// retries.
func (c *Controller) persistLocked(ctx context.Context, sess *session) {
	if err := c.store.save(ctx, sess.payloadLocked()); err != nil {
		c.logger.Warn("duel_store_save_failed",
			zap.String("session", sess.id),
			zap.Error(err))
	}
}

func (c *Controller) publishStateLocked(sess *session) {
	c.bus.publish(Event{Type: EventState, SessionID: sess.id, Snapshot: sess.snapshotLocked()})
}

func (c *Controller) publishThinkingLocked(sess *session) {
	c.bus.publish(Event{Type: EventThinking, SessionID: sess.id, Snapshot: sess.snapshotLocked()})
}

func (c *Controller) archiveFinishedLocked(ctx context.Context, sess *session, st Status) {
	now := time.Now()
	record := &domain.DuelGame{
		SessionKey:   fmt.Sprintf("%s:%d", sess.id, sess.generation),
		Mode:         string(sess.mode),
		Result:       resultFromStatus(st),
		ResultMethod: methodFromStatus(st),
		MovesUCI:     append([]string(nil), sess.movesUCI...),
		MovesSAN:     append([]string(nil), sess.movesSAN...),
		PGN:          sess.game.String(),
		InvalidMoves: sess.invalidMoves,
		StartedAt:    sess.startedAt,
		EndedAt:      now,
		Duration:     now.Sub(sess.startedAt),
	}
	gameID, err := c.archive.InsertDuel(ctx, record)
	if errors.Is(err, archive.ErrDuplicateDuel) {
		return
	}
	if err != nil {
		c.logger.Error("duel_archive_failed",
			zap.String("session", sess.id),
			zap.Error(err))
		return
	}
	c.logger.Info("duel_archived",
		zap.String("session", sess.id),
		zap.Int64("game_id", gameID),
		zap.String("result", record.Result),
		zap.String("method", record.ResultMethod))
}

func resultFromStatus(st Status) string {
	switch st.State {
	case StateCheckmate, StateForfeit:
		return ColorName(st.Winner)
	case StateStalemate, StateDraw:
		return "draw"
	default:
		return "in_progress"
	}
}

func methodFromStatus(st Status) string {
	switch st.State {
	case StateCheckmate:
		return "checkmate"
	case StateStalemate:
		return "stalemate"
	case StateForfeit:
		return "forfeit"
	case StateDraw:
		switch st.Reason {
		case ReasonThreefold:
			return "threefold_repetition"
		case ReasonInsufficient:
			return "insufficient_material"
		case ReasonMoveCap:
			return "move_cap"
		default:
			return "draw"
		}
	default:
		return ""
	}
}
