package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// QuizRepository abstracts how quiz definitions are stored (in-memory, Postgres).
// Insert must assign ids atomically: two concurrent inserts never share an id,
// and ids are monotonic and never reused.
type QuizRepository interface {
	Insert(ctx context.Context, name string, creatorID int64, questions []domain.Question) (int64, error)
	Get(ctx context.Context, id int64) (domain.Quiz, error)
	List(ctx context.Context) ([]domain.QuizSummary, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]domain.QuizSummary, error)
}

// Service owns quiz definitions: validated creation, lookup and listing.
type Service struct {
	repo QuizRepository
}

func NewService(repo QuizRepository) *Service {
	return &Service{repo: repo}
}

// Create validates the question list and stores a new quiz. Validation is
// all-or-nothing: the first invalid question rejects the whole quiz.
func (s *Service) Create(ctx context.Context, name string, creatorID int64, questions []domain.Question) (int64, error) {
	if name == "" {
		return 0, &domain.ValidationError{Reason: "quiz name is empty"}
	}
	if len(questions) == 0 {
		return 0, &domain.ValidationError{Reason: "quiz has no questions"}
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return 0, &domain.ValidationError{Reason: fmt.Sprintf("question %d: %s", i+1, ve.Reason)}
			}
			return 0, err
		}
	}
	return s.repo.Insert(ctx, name, creatorID, questions)
}

// Get returns a quiz by id, or domain.ErrQuizNotFound.
func (s *Service) Get(ctx context.Context, id int64) (domain.Quiz, error) {
	return s.repo.Get(ctx, id)
}

// ListAll returns summaries of every quiz in insertion order.
func (s *Service) ListAll(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.repo.List(ctx)
}

// ListByCreator returns summaries of the quizzes a user created, insertion order.
func (s *Service) ListByCreator(ctx context.Context, creatorID int64) ([]domain.QuizSummary, error) {
	return s.repo.ListByCreator(ctx, creatorID)
}
