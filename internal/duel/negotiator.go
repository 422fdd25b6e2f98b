package duel

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/hyeon-dev/chessduel/internal/provider"
)

// MoveProvider is the external AI collaborator consulted for automated moves.
type MoveProvider interface {
	ProposeMove(ctx context.Context, req provider.MoveRequest) (provider.MoveProposal, error)
	SuggestToken(ctx context.Context, req provider.HintRequest) (string, error)
}

// lockedRand is a seedable random source shared by concurrent negotiations.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// negotiator resolves one automated move per turn: ask the provider, validate
// the proposal against the rules engine, fall back to a uniform random legal
// move on any failure. Failure accounting stays with the controller so the
// invalid counter has a single writer.
type negotiator struct {
	provider MoveProvider
	rng      *lockedRand
	logger   *zap.Logger
}

func newNegotiator(p MoveProvider, rng *lockedRand, logger *zap.Logger) *negotiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &negotiator{provider: p, rng: rng, logger: logger}
}

// propose sends the position to the provider. Runs without any session lock;
// latency is unbounded unless the provider client enforces its own deadline.
func (n *negotiator) propose(ctx context.Context, fen string, turn nchess.Color, legal []string) (provider.MoveProposal, error) {
	if n.provider == nil {
		return provider.MoveProposal{}, ErrNoProvider
	}
	proposal, err := n.provider.ProposeMove(ctx, provider.MoveRequest{
		FEN:        fen,
		SideToMove: ColorName(turn),
		LegalMoves: legal,
	})
	if err != nil {
		return provider.MoveProposal{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return proposal, nil
}

// matchProposal validates a provider proposal against the freshly enumerated
// legal set. A promoting move must name its promotion piece; there is no
// auto-queen on the provider path.
func matchProposal(game *nchess.Game, p provider.MoveProposal) (*nchess.Move, error) {
	from := strings.ToLower(strings.TrimSpace(p.From))
	to := strings.ToLower(strings.TrimSpace(p.To))
	promo := strings.ToLower(strings.TrimSpace(p.Promotion))
	if !isSquare(from) || !isSquare(to) {
		return nil, fmt.Errorf("%w: bad squares %q-%q", ErrIllegalProposal, p.From, p.To)
	}
	want := from + to + promo
	valid := game.ValidMoves()
	for i := range valid {
		if strings.ToLower(valid[i].String()) == want {
			return &valid[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIllegalProposal, want)
}

// fallbackMove picks uniformly at random from the legal moves available right
// now, not from the list sent to the provider. Nil only when no legal move
// exists.
func (n *negotiator) fallbackMove(game *nchess.Game) *nchess.Move {
	valid := game.ValidMoves()
	if len(valid) == 0 {
		return nil
	}
	pick := valid[n.rng.Intn(len(valid))]
	return &pick
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
