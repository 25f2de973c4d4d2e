package memory

import (
	"context"
	"sync"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// QuizRepository is an in-memory catalog.QuizRepository. Ids are assigned
// monotonically under the lock and never reused; listings keep insertion order.
type QuizRepository struct {
	mu      sync.RWMutex
	nextID  int64
	order   []int64
	quizzes map[int64]domain.Quiz
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		nextID:  1,
		quizzes: make(map[int64]domain.Quiz),
	}
}

func (r *QuizRepository) Insert(_ context.Context, name string, creatorID int64, questions []domain.Question) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	qs := make([]domain.Question, len(questions))
	copy(qs, questions)

	r.quizzes[id] = domain.Quiz{
		ID:        id,
		Name:      name,
		CreatorID: creatorID,
		Questions: qs,
	}
	r.order = append(r.order, id)
	return id, nil
}

func (r *QuizRepository) Get(_ context.Context, id int64) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	qs := make([]domain.Question, len(quiz.Questions))
	copy(qs, quiz.Questions)
	quiz.Questions = qs
	return quiz, nil
}

func (r *QuizRepository) List(_ context.Context) ([]domain.QuizSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.QuizSummary, 0, len(r.order))
	for _, id := range r.order {
		q := r.quizzes[id]
		out = append(out, domain.QuizSummary{ID: q.ID, Name: q.Name, QuestionCount: len(q.Questions)})
	}
	return out, nil
}

func (r *QuizRepository) ListByCreator(_ context.Context, creatorID int64) ([]domain.QuizSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.QuizSummary
	for _, id := range r.order {
		q := r.quizzes[id]
		if q.CreatorID != creatorID {
			continue
		}
		out = append(out, domain.QuizSummary{ID: q.ID, Name: q.Name, QuestionCount: len(q.Questions)})
	}
	return out, nil
}
