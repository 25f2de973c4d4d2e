package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// LeaderboardStore is the in-memory leaderboard.Store and the reference
// implementation of the ranking policy: score descending, ties broken by
// total descending, then display name ascending.
type LeaderboardStore struct {
	mu      sync.RWMutex
	entries map[int64]domain.LeaderboardEntry
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		entries: make(map[int64]domain.LeaderboardEntry),
	}
}

func (s *LeaderboardStore) Record(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.UserID] = entry
	return nil
}

func (s *LeaderboardStore) Top(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LeaderboardEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
