package quiz

import (
	"fmt"
	"sync"
	"time"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// Session is one user's attempt at a quiz. The snapshot is captured at start
// and never re-fetched, so catalog changes cannot affect an attempt in flight.
// All mutation happens under mu; the store hands out pointers, never copies.
type Session struct {
	mu sync.Mutex

	userID      int64
	displayName string
	quizID      int64
	quizName    string
	snapshot    []domain.Question

	currentIndex int
	score        int
	state        domain.SessionState

	// generation increments on every restart so a deadline armed before the
	// restart cannot advance the replayed attempt, whose index starts over at
	// the value the stale timer guards
	generation int

	// timer for the pending question deadline, nil when timeouts are disabled
	timer *time.Timer
}

func newSession(userID int64, displayName string, quizID int64, quizName string, snapshot []domain.Question) *Session {
	return &Session{
		userID:      userID,
		displayName: displayName,
		quizID:      quizID,
		quizName:    quizName,
		snapshot:    snapshot,
		state:       domain.SessionActive,
	}
}

// View is an immutable snapshot of session progress for tests and logging.
type View struct {
	UserID       int64
	QuizID       int64
	QuizName     string
	CurrentIndex int
	Score        int
	Total        int
	State        domain.SessionState
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		UserID:       s.userID,
		QuizID:       s.quizID,
		QuizName:     s.quizName,
		CurrentIndex: s.currentIndex,
		Score:        s.score,
		Total:        len(s.snapshot),
		State:        s.state,
	}
}

// checkLocked verifies the session invariant 0 <= score <= index <= len(snapshot).
func (s *Session) checkLocked() error {
	if s.currentIndex < 0 || s.currentIndex > len(s.snapshot) {
		return fmt.Errorf("%w: index %d outside [0,%d]", domain.ErrSessionCorrupted, s.currentIndex, len(s.snapshot))
	}
	if s.score < 0 || s.score > s.currentIndex {
		return fmt.Errorf("%w: score %d exceeds answered count %d", domain.ErrSessionCorrupted, s.score, s.currentIndex)
	}
	return nil
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
