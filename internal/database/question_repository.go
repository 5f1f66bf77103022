package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/reviewq/pkg/models"
)

// QuestionRepository handles database operations for exam question pools
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a new question and fills in its ID.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if r.db.DriverName() == DriverPostgres {
		query := `
			INSERT INTO questions (exam_id, question_type, title)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`
		err := r.db.QueryRowxContext(ctx, query, q.ExamID, q.QuestionType, q.Title).Scan(&q.ID, &q.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO questions (exam_id, question_type, title) VALUES (?, ?, ?)`,
		q.ExamID, q.QuestionType, q.Title,
	)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	q.ID = id
	return nil
}

// FindByTitle returns the question of an exam with the given title, or nil.
func (r *QuestionRepository) FindByTitle(ctx context.Context, examID int64, title string) (*models.Question, error) {
	var q models.Question
	query := r.db.Rebind(`SELECT id, exam_id, question_type, title, created_at FROM questions WHERE exam_id = ? AND title = ?`)
	err := r.db.GetContext(ctx, &q, query, examID, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return &q, nil
}
