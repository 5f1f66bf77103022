package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/reviewq/pkg/models"
)

const trackColumns = `user_id, question_id, exam_id, question_type,
	correct_count, error_count, total_count,
	last_answer_time, next_review_time, status, cycle_index, version,
	created_at, updated_at`

// TrackRepository handles database operations for review tracks
type TrackRepository struct {
	db *sqlx.DB
}

// NewTrackRepository creates a new repository instance
func NewTrackRepository(db *sqlx.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Find returns the track of a user for a question. The boolean is false when
// the user has never answered it.
func (r *TrackRepository) Find(ctx context.Context, userID, questionID int64) (models.ReviewTrack, bool, error) {
	return r.find(ctx, r.db, userID, questionID)
}

func (r *TrackRepository) find(ctx context.Context, q sqlx.QueryerContext, userID, questionID int64) (models.ReviewTrack, bool, error) {
	query := r.db.Rebind(`SELECT ` + trackColumns + ` FROM review_tracks WHERE user_id = ? AND question_id = ?`)
	var track models.ReviewTrack
	err := sqlx.GetContext(ctx, q, &track, query, userID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReviewTrack{}, false, nil
	}
	if err != nil {
		return models.ReviewTrack{}, false, fmt.Errorf("failed to get review track: %w", err)
	}
	return track, true, nil
}

// Modify reads the track, passes it to fn (nil when absent) and stores the
// result, all in one transaction. The write is guarded by the row version: if
// another writer got there first, or SQLite stayed locked past the busy
// timeout, nothing is stored and ErrConcurrentUpdate is returned.
func (r *TrackRepository) Modify(ctx context.Context, userID, questionID int64,
	fn func(prev *models.ReviewTrack) (models.ReviewTrack, error)) (models.ReviewTrack, error) {

	t, err := r.modify(ctx, userID, questionID, fn)
	if isBusy(err) {
		return models.ReviewTrack{}, fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return t, err
}

func (r *TrackRepository) modify(ctx context.Context, userID, questionID int64,
	fn func(prev *models.ReviewTrack) (models.ReviewTrack, error)) (models.ReviewTrack, error) {

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.ReviewTrack{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prev, found, err := r.find(ctx, tx, userID, questionID)
	if err != nil {
		return models.ReviewTrack{}, err
	}
	var prevPtr *models.ReviewTrack
	if found {
		prevPtr = &prev
	}

	next, err := fn(prevPtr)
	if err != nil {
		return models.ReviewTrack{}, err
	}
	next.UserID = userID
	next.QuestionID = questionID

	if found {
		next.Version = prev.Version + 1
		err = r.update(ctx, tx, next, prev.Version)
	} else {
		next.Version = 1
		err = r.insert(ctx, tx, next)
	}
	if err != nil {
		return models.ReviewTrack{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ReviewTrack{}, fmt.Errorf("failed to commit review track: %w", err)
	}
	return next, nil
}

func (r *TrackRepository) insert(ctx context.Context, tx *sqlx.Tx, t models.ReviewTrack) error {
	query := r.db.Rebind(`
		INSERT INTO review_tracks (
			user_id, question_id, exam_id, question_type,
			correct_count, error_count, total_count,
			last_answer_time, next_review_time, status, cycle_index, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, question_id) DO NOTHING
	`)
	result, err := tx.ExecContext(ctx, query,
		t.UserID, t.QuestionID, t.ExamID, t.QuestionType,
		t.CorrectCount, t.ErrorCount, t.TotalCount,
		t.LastAnswerTime, t.NextReviewTime, t.Status, t.CycleIndex, t.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create review track: %w", err)
	}
	return expectOneRow(result, t)
}

func (r *TrackRepository) update(ctx context.Context, tx *sqlx.Tx, t models.ReviewTrack, expectedVersion int) error {
	query := r.db.Rebind(`
		UPDATE review_tracks SET
			correct_count = ?,
			error_count = ?,
			total_count = ?,
			last_answer_time = ?,
			next_review_time = ?,
			status = ?,
			cycle_index = ?,
			version = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND question_id = ? AND version = ?
	`)
	result, err := tx.ExecContext(ctx, query,
		t.CorrectCount, t.ErrorCount, t.TotalCount,
		t.LastAnswerTime, t.NextReviewTime, t.Status, t.CycleIndex, t.Version,
		t.UserID, t.QuestionID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update review track: %w", err)
	}
	return expectOneRow(result, t)
}

func expectOneRow(result sql.Result, t models.ReviewTrack) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %d question %d", ErrConcurrentUpdate, t.UserID, t.QuestionID)
	}
	return nil
}

// DueToday returns pending questions of the exam due exactly on today,
// least recently answered first.
func (r *TrackRepository) DueToday(ctx context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	return r.pendingByDate(ctx, "=", userID, examID, today, limit)
}

// Overdue returns pending questions whose review date has passed.
func (r *TrackRepository) Overdue(ctx context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	return r.pendingByDate(ctx, "<", userID, examID, today, limit)
}

// NotYetDue returns pending questions scheduled after today.
func (r *TrackRepository) NotYetDue(ctx context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	return r.pendingByDate(ctx, ">", userID, examID, today, limit)
}

func (r *TrackRepository) pendingByDate(ctx context.Context, op string, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := r.db.Rebind(`
		SELECT t.question_id
		FROM review_tracks t
		JOIN questions q ON q.id = t.question_id
		WHERE t.user_id = ? AND q.exam_id = ?
		AND t.status = ?
		AND t.next_review_time ` + op + ` ?
		ORDER BY t.last_answer_time ASC, t.question_id ASC
		LIMIT ?
	`)
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID, examID, models.StatusPending, today, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending questions (next review %s %s): %w", op, today, err)
	}
	return ids, nil
}

// Unanswered returns questions of the exam pool the user has no track for,
// lowest id first.
func (r *TrackRepository) Unanswered(ctx context.Context, userID, examID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := r.db.Rebind(`
		SELECT q.id
		FROM questions q
		WHERE q.exam_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM review_tracks t
			WHERE t.user_id = ? AND t.question_id = q.id
		)
		ORDER BY q.id ASC
		LIMIT ?
	`)
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, examID, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get unanswered questions: %w", err)
	}
	return ids, nil
}

// Mastered returns mastered questions, least recently answered first.
func (r *TrackRepository) Mastered(ctx context.Context, userID, examID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := r.db.Rebind(`
		SELECT t.question_id
		FROM review_tracks t
		JOIN questions q ON q.id = t.question_id
		WHERE t.user_id = ? AND q.exam_id = ?
		AND t.status = ?
		AND t.cycle_index = ?
		ORDER BY t.last_answer_time ASC, t.question_id ASC
		LIMIT ?
	`)
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID, examID, models.StatusMastered, models.MasteredCycleIndex, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get mastered questions: %w", err)
	}
	return ids, nil
}

// PoolSize returns the number of questions in the exam pool.
func (r *TrackRepository) PoolSize(ctx context.Context, examID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM questions WHERE exam_id = ?`), examID)
	if err != nil {
		return 0, fmt.Errorf("failed to count exam questions: %w", err)
	}
	return n, nil
}
