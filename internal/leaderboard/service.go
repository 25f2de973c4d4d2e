package leaderboard

import (
	"context"
	"sync"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// Store abstracts leaderboard persistence (in-memory, Redis). Record overwrites
// any prior entry for the same user; the row always reflects the user's most
// recent finished session, not their best score.
type Store interface {
	Record(ctx context.Context, entry domain.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// Service serializes leaderboard writes and fans out ranking updates to
// subscribers (the live websocket feed).
type Service struct {
	store Store
	topN  int

	mu          sync.Mutex
	subscribers map[chan []domain.LeaderboardEntry]struct{}
}

func NewService(store Store, topN int) *Service {
	return &Service{
		store:       store,
		topN:        topN,
		subscribers: make(map[chan []domain.LeaderboardEntry]struct{}),
	}
}

// RecordResult stores a finished-session result, overwriting the user's prior
// entry, and broadcasts the refreshed top-N to subscribers.
func (s *Service) RecordResult(ctx context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Record(ctx, entry); err != nil {
		return err
	}

	top, err := s.store.Top(ctx, s.topN)
	if err != nil {
		return err
	}
	s.broadcastLocked(top)
	return nil
}

// TopN returns the n best entries. Ordering: score descending, ties broken by
// total descending, then display name ascending.
func (s *Service) TopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	return s.store.Top(ctx, n)
}

// Subscribe returns a channel receiving top-N snapshots on every recorded
// result, starting with the current state. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *Service) Subscribe(ctx context.Context) (<-chan []domain.LeaderboardEntry, func(), error) {
	initial, err := s.store.Top(ctx, s.topN)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []domain.LeaderboardEntry, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *Service) broadcastLocked(top []domain.LeaderboardEntry) {
	for ch := range s.subscribers {
		select {
		case ch <- top:
		default:
			// slow subscriber: drop its stale snapshot and queue the fresh one
			select {
			case <-ch:
			default:
			}
			ch <- top
		}
	}
}
