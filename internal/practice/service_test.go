package practice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/reviewq/internal/database"
	"github.com/example/reviewq/internal/selection"
	"github.com/example/reviewq/internal/spaced_repetition"
	"github.com/example/reviewq/pkg/models"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) addDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

type fixture struct {
	store    *database.MemoryStore
	sessions *database.MemorySessions
	clock    *clock
	svc      *Service
}

func newFixture(t *testing.T, poolSize int) *fixture {
	t.Helper()
	f := &fixture{
		store:    database.NewMemoryStore(),
		sessions: database.NewMemorySessions(),
		clock:    &clock{now: time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)},
	}
	for id := int64(1); id <= int64(poolSize); id++ {
		f.store.AddQuestions(1, id)
	}
	f.svc = NewService(f.store, f.store, f.sessions, nil, Options{Location: time.UTC, Now: f.clock.Now})
	return f
}

func answer(questionID int64, correct bool) Answer {
	return Answer{UserID: 1, ExamID: 1, QuestionID: questionID, QuestionType: 1, Correct: correct}
}

func TestService_RecordAnswerFollowsCycle(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	day0 := f.svc.Today()

	track, err := f.svc.RecordAnswer(ctx, answer(1, true))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, track.Status)
	assert.Equal(t, 0, track.CycleIndex)
	assert.True(t, track.NextReviewTime.Equal(day0))
	assert.Equal(t, 1, track.Version)

	track, err = f.svc.RecordAnswer(ctx, answer(1, true))
	require.NoError(t, err)
	assert.Equal(t, 1, track.CycleIndex)
	assert.True(t, track.NextReviewTime.Equal(day0.AddDays(1)))
	assert.Equal(t, 2, track.TotalCount)
	assert.Equal(t, 2, track.Version)

	f.clock.addDays(1)
	track, err = f.svc.RecordAnswer(ctx, answer(1, false))
	require.NoError(t, err)
	assert.Equal(t, 0, track.CycleIndex)
	assert.Equal(t, 1, track.ErrorCount)
	assert.True(t, track.NextReviewTime.Equal(day0.AddDays(1)))
}

func TestService_TodayUsesLocation(t *testing.T) {
	now := time.Date(2024, time.May, 20, 23, 30, 0, 0, time.UTC)
	svc := NewService(database.NewMemoryStore(), database.NewMemoryStore(), database.NewMemorySessions(), nil,
		Options{Location: time.FixedZone("UTC+8", 8*3600), Now: func() time.Time { return now }})
	assert.Equal(t, "2024-05-21", svc.Today().String())
}

func TestService_DrawPrefersDueReviews(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.RecordAnswer(ctx, answer(4, true))
	require.NoError(t, err)

	ids, err := f.svc.DrawQuestionSet(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids)
}

func TestService_DrawErrors(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.DrawQuestionSet(context.Background(), 1, 1, 5)
	assert.ErrorIs(t, err, selection.ErrInsufficientQuestionPool)

	_, err = f.svc.StartSession(context.Background(), 1, 1, 0)
	assert.ErrorIs(t, err, selection.ErrInvalidQuota)
}

func TestService_SessionSnapshotIsStable(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	session, err := f.svc.StartSession(ctx, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, session.QuestionIDs)

	for _, id := range session.QuestionIDs {
		for i := 0; i < 2; i++ {
			_, err := f.svc.RecordAnswer(ctx, answer(id, true))
			require.NoError(t, err)
		}
	}

	redraw, err := f.svc.DrawQuestionSet(ctx, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 1}, redraw)

	stored, err := f.svc.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, stored.QuestionIDs)
	assert.Equal(t, 3, stored.Quota)
}

func TestService_ConcurrentAnswersAreSerialized(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	const n = 40

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		for _, q := range []int64{1, 2} {
			wg.Add(1)
			go func(q int64, correct bool) {
				defer wg.Done()
				_, err := f.svc.RecordAnswer(ctx, answer(q, correct))
				errs <- err
			}(q, i%2 == 0)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, q := range []int64{1, 2} {
		track, found, err := f.store.Find(ctx, 1, q)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, n, track.TotalCount)
		assert.Equal(t, n/2, track.CorrectCount)
		assert.Equal(t, n, track.Version)
	}
	assert.Zero(t, f.svc.locks.size())
}

// flakyStore loses the first `failures` write races.
type flakyStore struct {
	*database.MemoryStore
	failures int32
	calls    int32
}

func (s *flakyStore) Modify(ctx context.Context, userID, questionID int64,
	fn func(prev *models.ReviewTrack) (models.ReviewTrack, error)) (models.ReviewTrack, error) {
	call := atomic.AddInt32(&s.calls, 1)
	if call <= atomic.LoadInt32(&s.failures) {
		return models.ReviewTrack{}, fmt.Errorf("%w: simulated", database.ErrConcurrentUpdate)
	}
	return s.MemoryStore.Modify(ctx, userID, questionID, fn)
}

func TestService_RetriesLostRaces(t *testing.T) {
	store := &flakyStore{MemoryStore: database.NewMemoryStore(), failures: 2}
	store.AddQuestions(1, 1)
	svc := NewService(store, store, database.NewMemorySessions(), nil, Options{MaxConflictRetries: 3})

	track, err := svc.RecordAnswer(context.Background(), answer(1, true))
	require.NoError(t, err)
	assert.Equal(t, 1, track.TotalCount)
	assert.Equal(t, int32(3), store.calls)
}

func TestService_GivesUpAfterRetryBound(t *testing.T) {
	store := &flakyStore{MemoryStore: database.NewMemoryStore(), failures: 100}
	store.AddQuestions(1, 1)
	svc := NewService(store, store, database.NewMemorySessions(), nil, Options{MaxConflictRetries: 2})

	_, err := svc.RecordAnswer(context.Background(), answer(1, true))
	assert.ErrorIs(t, err, database.ErrConcurrentUpdate)
	assert.Equal(t, int32(3), store.calls)

	_, found, _ := store.Find(context.Background(), 1, 1)
	assert.False(t, found)
}

func TestService_CorruptTrackIsNotRepaired(t *testing.T) {
	f := newFixture(t, 1)
	corrupt := models.ReviewTrack{
		UserID: 1, QuestionID: 1, ExamID: 1,
		Status: models.StatusPending, CycleIndex: 17,
		NextReviewTime: f.svc.Today(), CorrectCount: 1, TotalCount: 1,
	}
	f.store.PutTrack(corrupt)

	_, err := f.svc.RecordAnswer(context.Background(), answer(1, true))
	assert.ErrorIs(t, err, spaced_repetition.ErrInvariantViolation)

	stored, _, _ := f.store.Find(context.Background(), 1, 1)
	assert.Equal(t, 17, stored.CycleIndex)
	assert.Equal(t, 1, stored.Version)
}

func TestService_RejectsInvalidAnswer(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.svc.RecordAnswer(context.Background(), Answer{UserID: 1})
	assert.Error(t, err)
}

func TestService_StatsAndMissed(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	_, err := f.svc.RecordAnswer(ctx, answer(1, true))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = f.svc.RecordAnswer(ctx, answer(2, false))
		require.NoError(t, err)
	}
	_, err = f.svc.RecordAnswer(ctx, answer(3, false))
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.PoolSize)
	assert.Equal(t, 3, stats.DueToday)
	assert.Equal(t, 1, stats.Unanswered)

	missed, err := f.svc.Missed(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, missed, 2)
	assert.Equal(t, int64(2), missed[0].QuestionID)
	assert.Equal(t, 2, missed[0].ErrorCount)
	assert.Equal(t, int64(3), missed[1].QuestionID)
}
