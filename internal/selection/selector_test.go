package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/reviewq/internal/database"
	"github.com/example/reviewq/pkg/models"
)

var today = models.NewDate(2024, time.May, 20)

func track(questionID int64, status models.TrackStatus, cycle int, next, last models.Date) models.ReviewTrack {
	return models.ReviewTrack{
		UserID: 1, QuestionID: questionID, ExamID: 1, QuestionType: 1,
		CorrectCount: 1, TotalCount: 1,
		LastAnswerTime: last, NextReviewTime: next,
		Status: status, CycleIndex: cycle,
	}
}

// newPool builds exam 1 with one question per tier plus a second unanswered one:
// 1 due today, 2 overdue, 3 and 4 unanswered, 5 not yet due, 6 mastered.
func newPool() *database.MemoryStore {
	store := database.NewMemoryStore()
	store.AddQuestions(1, 1, 2, 3, 4, 5, 6)
	store.PutTrack(track(1, models.StatusPending, 2, today, today.AddDays(-3)))
	store.PutTrack(track(2, models.StatusPending, 1, today.AddDays(-2), today.AddDays(-3)))
	store.PutTrack(track(5, models.StatusPending, 3, today.AddDays(6), today.AddDays(-1)))
	store.PutTrack(track(6, models.StatusMastered, models.MasteredCycleIndex, today.AddDays(-40), today.AddDays(-40)))
	return store
}

func TestSelector_TierPrecedence(t *testing.T) {
	sel := NewSelector(newPool())
	ctx := context.Background()

	tests := []struct {
		quota int
		want  []int64
	}{
		{quota: 1, want: []int64{1}},
		{quota: 2, want: []int64{1, 2}},
		{quota: 3, want: []int64{1, 2, 3}},
		{quota: 5, want: []int64{1, 2, 3, 4, 5}},
		{quota: 6, want: []int64{1, 2, 3, 4, 5, 6}},
		{quota: 50, want: []int64{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		got, err := sel.Draw(ctx, 1, 1, tt.quota, today)
		require.NoError(t, err, "quota %d", tt.quota)
		assert.Equal(t, tt.want, got.QuestionIDs, "quota %d", tt.quota)
	}
}

func TestSelector_PerTierCounts(t *testing.T) {
	got, err := NewSelector(newPool()).Draw(context.Background(), 1, 1, 4, today)
	require.NoError(t, err)
	assert.Equal(t, map[models.Tier]int{
		models.TierDueToday:   1,
		models.TierOverdue:    1,
		models.TierUnanswered: 2,
	}, got.PerTier)
}

func TestSelector_DrawIsRepeatable(t *testing.T) {
	sel := NewSelector(newPool())
	first, err := sel.Draw(context.Background(), 1, 1, 4, today)
	require.NoError(t, err)
	second, err := sel.Draw(context.Background(), 1, 1, 4, today)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelector_OtherUserSeesOnlyUnanswered(t *testing.T) {
	got, err := NewSelector(newPool()).Draw(context.Background(), 2, 1, 3, today)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got.QuestionIDs)
	assert.Equal(t, 3, got.PerTier[models.TierUnanswered])
}

func TestSelector_InvalidQuota(t *testing.T) {
	sel := NewSelector(newPool())
	for _, quota := range []int{0, -3} {
		_, err := sel.Draw(context.Background(), 1, 1, quota, today)
		assert.ErrorIs(t, err, ErrInvalidQuota)
	}
}

func TestSelector_EmptyPool(t *testing.T) {
	_, err := NewSelector(newPool()).Draw(context.Background(), 1, 99, 5, today)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientQuestionPool)
	assert.Equal(t, "not enough questions configured for this exam", err.Error())

	var short *InsufficientQuestionPoolError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, int64(99), short.ExamID)
	assert.Equal(t, 0, short.Target)
}

// stubSource serves fixed tier lists, which lets tests feed overlapping or
// incomplete tiers that a consistent store never produces.
type stubSource struct {
	pool  int
	tiers map[models.Tier][]int64
	err   error
}

func (s stubSource) list(tier models.Tier, limit int) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	ids := s.tiers[tier]
	if limit <= 0 {
		return nil, nil
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s stubSource) DueToday(_ context.Context, _, _ int64, _ models.Date, limit int) ([]int64, error) {
	return s.list(models.TierDueToday, limit)
}

func (s stubSource) Overdue(_ context.Context, _, _ int64, _ models.Date, limit int) ([]int64, error) {
	return s.list(models.TierOverdue, limit)
}

func (s stubSource) Unanswered(_ context.Context, _, _ int64, limit int) ([]int64, error) {
	return s.list(models.TierUnanswered, limit)
}

func (s stubSource) NotYetDue(_ context.Context, _, _ int64, _ models.Date, limit int) ([]int64, error) {
	return s.list(models.TierNotYetDue, limit)
}

func (s stubSource) Mastered(_ context.Context, _, _ int64, limit int) ([]int64, error) {
	return s.list(models.TierMastered, limit)
}

func (s stubSource) PoolSize(context.Context, int64) (int, error) {
	return s.pool, nil
}

func TestSelector_SkipsDuplicatesAcrossTiers(t *testing.T) {
	src := stubSource{pool: 4, tiers: map[models.Tier][]int64{
		models.TierDueToday:   {1, 2},
		models.TierOverdue:    {2, 3},
		models.TierUnanswered: {4},
	}}
	got, err := NewSelector(src).Draw(context.Background(), 1, 1, 4, today)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, got.QuestionIDs)
}

func TestSelector_ShortAfterAllTiers(t *testing.T) {
	src := stubSource{pool: 5, tiers: map[models.Tier][]int64{
		models.TierUnanswered: {7, 8},
		models.TierMastered:   {9},
	}}
	_, err := NewSelector(src).Draw(context.Background(), 3, 4, 5, today)
	require.ErrorIs(t, err, ErrInsufficientQuestionPool)

	var short *InsufficientQuestionPoolError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, 5, short.Target)
	assert.Equal(t, 3, short.Found)
	assert.Contains(t, short.Detail(), "found 3")
}

func TestSelector_SourceErrorsAreWrapped(t *testing.T) {
	src := stubSource{pool: 3, err: assert.AnError}
	_, err := NewSelector(src).Draw(context.Background(), 1, 1, 2, today)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "due_today")
}

func TestClassifier_Candidates(t *testing.T) {
	c := NewClassifier(newPool())
	want := map[models.Tier][]int64{
		models.TierDueToday:   {1},
		models.TierOverdue:    {2},
		models.TierUnanswered: {3},
		models.TierNotYetDue:  {5},
		models.TierMastered:   {6},
	}
	for _, tier := range models.Tiers {
		ids, err := c.Candidates(context.Background(), tier, 1, 1, today, 1)
		require.NoError(t, err)
		assert.Equal(t, want[tier], ids, tier.String())
	}
}

func TestClassifier_UnknownTier(t *testing.T) {
	_, err := NewClassifier(newPool()).Candidates(context.Background(), models.Tier(42), 1, 1, today, 3)
	assert.Error(t, err)
}
