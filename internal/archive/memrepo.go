package archive

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hyeon-dev/chessduel/internal/domain"
)

// memrepo is a development-only in-memory repository used when no database
// is configured. Contents are lost on restart.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	duelsByID      map[int64]*domain.DuelGame
	duelsBySession map[string]*domain.DuelGame
	duels          []*domain.DuelGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		duelsByID:      make(map[int64]*domain.DuelGame),
		duelsBySession: make(map[string]*domain.DuelGame),
	}
}

func (m *memrepo) InsertDuel(ctx context.Context, duel *domain.DuelGame) (int64, error) {
	if duel == nil {
		return 0, ErrDuplicateDuel
	}
	key := strings.TrimSpace(duel.SessionKey)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.duelsBySession[key]; exists {
		return 0, ErrDuplicateDuel
	}

	m.nextID++
	id := m.nextID
	copied := *duel
	copied.ID = id

	m.duelsByID[id] = &copied
	m.duelsBySession[key] = &copied
	m.duels = append(m.duels, &copied)

	return id, nil
}

func (m *memrepo) GetRecentDuels(ctx context.Context, limit int) ([]*domain.DuelGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.duels) == 0 {
		return []*domain.DuelGame{}, nil
	}
	items := append([]*domain.DuelGame(nil), m.duels...)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetDuel(ctx context.Context, id int64) (*domain.DuelGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.duelsByID[id]
	if !ok || d == nil {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (m *memrepo) GetDuelBySession(ctx context.Context, sessionKey string) (*domain.DuelGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.duelsBySession[strings.TrimSpace(sessionKey)]; ok && d != nil {
		copied := *d
		return &copied, nil
	}
	return nil, nil
}

func (m *memrepo) Stats(ctx context.Context) ([]*domain.DuelStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byMode := make(map[string]*domain.DuelStats)
	totalMoves := make(map[string]int)
	for _, d := range m.duels {
		s, ok := byMode[d.Mode]
		if !ok {
			s = &domain.DuelStats{Mode: d.Mode}
			byMode[d.Mode] = s
		}
		s.Games++
		switch d.Result {
		case "white":
			s.HumanWins++
		case "black":
			s.AIWins++
		case "draw":
			s.Draws++
		}
		if d.ResultMethod == "forfeit" {
			s.Forfeits++
		}
		totalMoves[d.Mode] += len(d.MovesUCI)
		if d.EndedAt.After(s.LastFinished) {
			s.LastFinished = d.EndedAt
		}
	}

	stats := make([]*domain.DuelStats, 0, len(byMode))
	for mode, s := range byMode {
		if s.Games > 0 {
			s.AvgMoves = float64(totalMoves[mode]) / float64(s.Games)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Mode < stats[j].Mode })
	return stats, nil
}
