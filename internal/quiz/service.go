package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/catalog"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/leaderboard"
)

// SessionStore keeps at most one session per user. Put replaces any existing
// record; the replaced session's pending timer is disarmed by the caller.
type SessionStore interface {
	Put(userID int64, s *Session)
	Get(userID int64) (*Session, bool)
	Delete(userID int64)
}

// Options tune the quiz-taking flow.
type Options struct {
	// QuestionTimeout auto-advances an unanswered question as incorrect after
	// the deadline. Zero disables timeouts.
	QuestionTimeout time.Duration
	// Shuffle randomizes question order in the snapshot taken at session
	// start. Restart replays the same shuffled order.
	Shuffle bool
	// SummaryTopN is how many leaderboard rows the finish summary shows.
	SummaryTopN int
}

// Service is the per-user quiz session state machine. Transitions mutate only
// the acting user's session, so one user's errors can never leak into another
// user's attempt.
type Service struct {
	store   SessionStore
	catalog *catalog.Service
	board   *leaderboard.Service
	gw      Gateway
	opts    Options

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewService(store SessionStore, cat *catalog.Service, board *leaderboard.Service, gw Gateway, opts Options) *Service {
	if opts.SummaryTopN <= 0 {
		opts.SummaryTopN = 5
	}
	return &Service{
		store:   store,
		catalog: cat,
		board:   board,
		gw:      gw,
		opts:    opts,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins a new attempt at quizID, replacing any previous session the
// user had. The quiz's questions are snapshotted here and never re-read.
func (m *Service) Start(ctx context.Context, userID int64, displayName string, quizID int64) error {
	q, err := m.catalog.Get(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			m.send(ctx, userID, "Quiz not found.")
			return err
		}
		m.send(ctx, userID, "Could not load that quiz, please try again.")
		return fmt.Errorf("start: load quiz %d: %w", quizID, err)
	}

	snapshot := make([]domain.Question, len(q.Questions))
	copy(snapshot, q.Questions)
	if m.opts.Shuffle {
		m.rndMu.Lock()
		m.rnd.Shuffle(len(snapshot), func(i, j int) {
			snapshot[i], snapshot[j] = snapshot[j], snapshot[i]
		})
		m.rndMu.Unlock()
	}

	if prev, ok := m.store.Get(userID); ok {
		// mark the replaced attempt dead so a deadline already past the store
		// lookup cannot advance it
		prev.mu.Lock()
		prev.stopTimerLocked()
		prev.state = domain.SessionCancelled
		prev.mu.Unlock()
	}

	sess := newSession(userID, displayName, q.ID, q.Name, snapshot)
	m.store.Put(userID, sess)

	if len(snapshot) == 0 {
		return m.finish(ctx, sess)
	}
	return m.askCurrent(ctx, sess)
}

// SubmitAnswer applies the user's option choice to the current question.
// A press with no live session is a stale tap and is ignored silently.
// An out-of-range option index is rejected without touching the session.
func (m *Service) SubmitAnswer(ctx context.Context, userID int64, optionIndex int) error {
	sess, ok := m.store.Get(userID)
	if !ok {
		log.Printf("quiz: answer from user %d ignored: %v", userID, domain.ErrNoActiveSession)
		return nil
	}

	sess.mu.Lock()
	if sess.state != domain.SessionActive {
		sess.mu.Unlock()
		log.Printf("quiz: answer from user %d in state %s ignored", userID, sess.state)
		return nil
	}
	if err := sess.checkLocked(); err != nil {
		sess.mu.Unlock()
		return m.fatal(ctx, sess, err)
	}

	idx := sess.currentIndex
	if idx >= len(sess.snapshot) {
		sess.mu.Unlock()
		return m.fatal(ctx, sess, fmt.Errorf("%w: active session with exhausted questions", domain.ErrSessionCorrupted))
	}
	q := sess.snapshot[idx]
	if err := q.Validate(); err != nil {
		sess.mu.Unlock()
		return m.fatal(ctx, sess, fmt.Errorf("%w: question %d invalid: %v", domain.ErrSessionCorrupted, idx, err))
	}

	if optionIndex < 0 || optionIndex >= len(q.Options) {
		sess.mu.Unlock()
		m.send(ctx, userID, "That option does not exist for this question.")
		return &domain.ValidationError{Reason: fmt.Sprintf("option %d out of range", optionIndex)}
	}

	correct := optionIndex == q.CorrectOption
	if correct {
		sess.score++
	}
	sess.currentIndex++
	sess.stopTimerLocked()
	done := sess.currentIndex == len(sess.snapshot)
	sess.mu.Unlock()

	m.sendAnimation(ctx, userID, feedbackGIF(correct))
	m.send(ctx, userID, feedbackText(correct, q, optionIndex))

	if done {
		return m.finish(ctx, sess)
	}
	return m.askCurrent(ctx, sess)
}

// Restart resets a live or finished session to question zero against the same
// snapshot. Restarting with no session is treated as a stale tap.
func (m *Service) Restart(ctx context.Context, userID int64) error {
	sess, ok := m.store.Get(userID)
	if !ok {
		log.Printf("quiz: restart from user %d ignored: %v", userID, domain.ErrNoActiveSession)
		return nil
	}

	sess.mu.Lock()
	if sess.state != domain.SessionActive && sess.state != domain.SessionFinished {
		sess.mu.Unlock()
		log.Printf("quiz: restart from user %d in state %s ignored", userID, sess.state)
		return nil
	}
	sess.stopTimerLocked()
	sess.currentIndex = 0
	sess.score = 0
	sess.state = domain.SessionActive
	sess.generation++
	sess.mu.Unlock()

	return m.askCurrent(ctx, sess)
}

// Quit discards the user's session. It is idempotent: quitting with nothing
// running still confirms.
func (m *Service) Quit(ctx context.Context, userID int64) error {
	m.discard(userID)
	m.send(ctx, userID, "❌ You have quit the quiz. Send /start to play again.")
	return nil
}

// Cancel discards the session like Quit but confirms with the conversation
// fallback message.
func (m *Service) Cancel(ctx context.Context, userID int64) error {
	m.discard(userID)
	m.send(ctx, userID, "Quiz cancelled.")
	return nil
}

// discard tears a session down. The state flip to Cancelled happens under the
// session lock so a deadline that fired before the store delete still bounces
// off the state check in expire.
func (m *Service) discard(userID int64) {
	if sess, ok := m.store.Get(userID); ok {
		sess.mu.Lock()
		sess.stopTimerLocked()
		sess.state = domain.SessionCancelled
		sess.mu.Unlock()
		m.store.Delete(userID)
	}
}

// askCurrent sends the question at the session's current index and arms the
// question deadline.
func (m *Service) askCurrent(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	if sess.state != domain.SessionActive {
		sess.mu.Unlock()
		return nil
	}
	if err := sess.checkLocked(); err != nil {
		sess.mu.Unlock()
		return m.fatal(ctx, sess, err)
	}
	idx := sess.currentIndex
	if idx >= len(sess.snapshot) {
		sess.mu.Unlock()
		return m.fatal(ctx, sess, fmt.Errorf("%w: asked past last question", domain.ErrSessionCorrupted))
	}
	q := sess.snapshot[idx]
	if err := q.Validate(); err != nil {
		sess.mu.Unlock()
		return m.fatal(ctx, sess, fmt.Errorf("%w: question %d invalid: %v", domain.ErrSessionCorrupted, idx, err))
	}
	userID := sess.userID
	if m.opts.QuestionTimeout > 0 {
		gen := sess.generation
		sess.timer = time.AfterFunc(m.opts.QuestionTimeout, func() {
			m.expire(userID, sess, idx, gen)
		})
	}
	sess.mu.Unlock()

	m.sendButtons(ctx, userID, q.Text, answerButtons(q))
	return nil
}

// expire is the question-deadline transition: advance as an incorrect answer,
// unless the user already moved past this question. At most one advance
// happens per question, whichever of answer or deadline comes first. The
// generation guard rejects timers armed before a restart, whose index would
// otherwise match the reset attempt.
func (m *Service) expire(userID int64, sess *Session, idx, gen int) {
	cur, ok := m.store.Get(userID)
	if !ok || cur != sess {
		return // session quit or replaced since the timer was armed
	}

	sess.mu.Lock()
	if sess.state != domain.SessionActive || sess.currentIndex != idx || sess.generation != gen {
		sess.mu.Unlock()
		return
	}
	sess.currentIndex++
	sess.timer = nil
	done := sess.currentIndex == len(sess.snapshot)
	sess.mu.Unlock()

	ctx := context.Background()
	m.send(ctx, userID, "⏳ Time's up! Moving to the next question.")

	if done {
		if err := m.finish(ctx, sess); err != nil {
			log.Printf("quiz: finish after timeout for user %d: %v", userID, err)
		}
		return
	}
	if err := m.askCurrent(ctx, sess); err != nil {
		log.Printf("quiz: next question after timeout for user %d: %v", userID, err)
	}
}

// finish records the result on the leaderboard and sends the summary with a
// restart affordance. The session stays in the store so restart keeps working.
func (m *Service) finish(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	sess.stopTimerLocked()
	sess.state = domain.SessionFinished
	entry := domain.LeaderboardEntry{
		UserID:      sess.userID,
		DisplayName: sess.displayName,
		Score:       sess.score,
		Total:       len(sess.snapshot),
	}
	sess.mu.Unlock()

	if err := m.board.RecordResult(ctx, entry); err != nil {
		log.Printf("quiz: record result for user %d: %v", entry.UserID, err)
	}

	top, err := m.board.TopN(ctx, m.opts.SummaryTopN)
	if err != nil {
		log.Printf("quiz: load leaderboard for summary: %v", err)
	}

	m.sendButtons(ctx, entry.UserID, summaryText(entry.Score, entry.Total, top), [][]Button{
		{{Label: "Restart Quiz", Data: PayloadRestart}},
	})
	return nil
}

// fatal terminates a session after an invariant breach. Only the offending
// user's session is affected.
func (m *Service) fatal(ctx context.Context, sess *Session, cause error) error {
	sess.mu.Lock()
	sess.stopTimerLocked()
	sess.state = domain.SessionCancelled
	userID := sess.userID
	sess.mu.Unlock()

	m.store.Delete(userID)
	m.send(ctx, userID, "Something went wrong with this quiz, so it was cancelled. Try another one.")
	log.Printf("quiz: session for user %d terminated: %v", userID, cause)
	return cause
}

func (m *Service) send(ctx context.Context, userID int64, text string) {
	if err := m.gw.SendText(ctx, userID, text); err != nil {
		log.Printf("quiz: send to user %d: %v", userID, err)
	}
}

func (m *Service) sendButtons(ctx context.Context, userID int64, text string, rows [][]Button) {
	if err := m.gw.SendButtons(ctx, userID, text, rows); err != nil {
		log.Printf("quiz: send buttons to user %d: %v", userID, err)
	}
}

func (m *Service) sendAnimation(ctx context.Context, userID int64, url string) {
	if err := m.gw.SendAnimation(ctx, userID, url); err != nil {
		log.Printf("quiz: send animation to user %d: %v", userID, err)
	}
}
