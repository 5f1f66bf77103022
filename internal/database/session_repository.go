package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/reviewq/pkg/models"
)

// SessionRepository stores the question snapshots of exam sessions
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new repository instance
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionRow struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ExamID      int64     `db:"exam_id"`
	Quota       int       `db:"quota"`
	QuestionIDs string    `db:"question_ids"`
	CreatedAt   time.Time `db:"created_at"`
}

// Create stores a new session and fills in its ID.
func (r *SessionRepository) Create(ctx context.Context, s *models.ExamSession) error {
	ids, err := json.Marshal(s.QuestionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode session questions: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	if r.db.DriverName() == DriverPostgres {
		query := `
			INSERT INTO exam_sessions (user_id, exam_id, quota, question_ids, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err := r.db.QueryRowxContext(ctx, query, s.UserID, s.ExamID, s.Quota, string(ids), s.CreatedAt).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO exam_sessions (user_id, exam_id, quota, question_ids, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.UserID, s.ExamID, s.Quota, string(ids), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	s.ID = id
	return nil
}

// GetByID returns a stored session
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ExamSession, error) {
	var row sessionRow
	query := r.db.Rebind(`SELECT id, user_id, exam_id, quota, question_ids, created_at FROM exam_sessions WHERE id = ?`)
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s := &models.ExamSession{
		ID:        row.ID,
		UserID:    row.UserID,
		ExamID:    row.ExamID,
		Quota:     row.Quota,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.QuestionIDs), &s.QuestionIDs); err != nil {
		return nil, fmt.Errorf("failed to decode session %d questions: %w", id, err)
	}
	return s, nil
}
