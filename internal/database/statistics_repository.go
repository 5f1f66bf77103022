package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/reviewq/pkg/models"
)

// StatisticsRepository answers read-only questions about review progress
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// TierStats counts the questions of an exam pool per selection tier for a user.
func (r *StatisticsRepository) TierStats(ctx context.Context, userID, examID int64, today models.Date) (models.TierStats, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS pool_size,
			COALESCE(SUM(CASE WHEN t.status = ? AND t.next_review_time = ? THEN 1 ELSE 0 END), 0) AS due_today,
			COALESCE(SUM(CASE WHEN t.status = ? AND t.next_review_time < ? THEN 1 ELSE 0 END), 0) AS overdue,
			COALESCE(SUM(CASE WHEN t.user_id IS NULL THEN 1 ELSE 0 END), 0) AS unanswered,
			COALESCE(SUM(CASE WHEN t.status = ? AND t.next_review_time > ? THEN 1 ELSE 0 END), 0) AS not_yet_due,
			COALESCE(SUM(CASE WHEN t.status = ? THEN 1 ELSE 0 END), 0) AS mastered
		FROM questions q
		LEFT JOIN review_tracks t ON t.question_id = q.id AND t.user_id = ?
		WHERE q.exam_id = ?
	`)
	var stats models.TierStats
	err := r.db.GetContext(ctx, &stats, query,
		models.StatusPending, today,
		models.StatusPending, today,
		models.StatusPending, today,
		models.StatusMastered,
		userID, examID,
	)
	if err != nil {
		return models.TierStats{}, fmt.Errorf("failed to get tier statistics: %w", err)
	}
	stats.UserID = userID
	stats.ExamID = examID
	return stats, nil
}

// DueSummaries returns, per user, how many pending reviews are due on or
// before today.
func (r *StatisticsRepository) DueSummaries(ctx context.Context, today models.Date) ([]models.DueSummary, error) {
	query := r.db.Rebind(`
		SELECT user_id, COUNT(*) AS due_count
		FROM review_tracks
		WHERE status = ? AND next_review_time <= ?
		GROUP BY user_id
		ORDER BY user_id
	`)
	var summaries []models.DueSummary
	if err := r.db.SelectContext(ctx, &summaries, query, models.StatusPending, today); err != nil {
		return nil, fmt.Errorf("failed to get due summaries: %w", err)
	}
	return summaries, nil
}

// Missed returns the questions of an exam pool the user has got wrong at
// least once, most errors first.
func (r *StatisticsRepository) Missed(ctx context.Context, userID, examID int64) ([]models.MissedQuestion, error) {
	query := r.db.Rebind(`
		SELECT t.question_id, t.question_type, t.error_count, t.correct_count, t.total_count
		FROM review_tracks t
		JOIN questions q ON q.id = t.question_id
		WHERE t.user_id = ? AND q.exam_id = ? AND t.error_count > 0
		ORDER BY t.error_count DESC, t.question_id ASC
	`)
	var missed []models.MissedQuestion
	if err := r.db.SelectContext(ctx, &missed, query, userID, examID); err != nil {
		return nil, fmt.Errorf("failed to get missed questions: %w", err)
	}
	return missed, nil
}
