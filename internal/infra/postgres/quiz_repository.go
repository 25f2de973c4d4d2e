package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
)

// QuizRepository persists quiz definitions in Postgres. Questions are stored
// as a JSONB array; BIGSERIAL ids give the monotonic never-reused assignment
// the catalog requires even across processes.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

func (r *QuizRepository) Insert(ctx context.Context, name string, creatorID int64, questions []domain.Question) (int64, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return 0, fmt.Errorf("marshal questions: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (name, creator_id, questions) VALUES ($1, $2, $3) RETURNING id`,
		name, creatorID, data,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}
	return id, nil
}

func (r *QuizRepository) Get(ctx context.Context, id int64) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		raw  []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, creator_id, questions FROM quizzes WHERE id=$1`, id,
	).Scan(&quiz.ID, &quiz.Name, &quiz.CreatorID, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}

func (r *QuizRepository) List(ctx context.Context) ([]domain.QuizSummary, error) {
	return r.list(ctx,
		`SELECT id, name, jsonb_array_length(questions) FROM quizzes ORDER BY id`)
}

func (r *QuizRepository) ListByCreator(ctx context.Context, creatorID int64) ([]domain.QuizSummary, error) {
	return r.list(ctx,
		`SELECT id, name, jsonb_array_length(questions) FROM quizzes WHERE creator_id=$1 ORDER BY id`,
		creatorID)
}

func (r *QuizRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.QuizSummary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizSummary
	for rows.Next() {
		var s domain.QuizSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan quiz summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
