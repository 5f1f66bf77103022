package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/reviewq/pkg/models"
)

type trackKey struct {
	userID     int64
	questionID int64
}

// MemoryStore keeps question pools and review tracks in memory. It mirrors
// TrackRepository, including the version check on writes, and is meant for
// tests and local experiments.
type MemoryStore struct {
	mu        sync.RWMutex
	questions map[int64]int64 // question id -> exam id
	tracks    map[trackKey]models.ReviewTrack
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: make(map[int64]int64),
		tracks:    make(map[trackKey]models.ReviewTrack),
	}
}

// AddQuestions puts the given question ids into the exam's pool.
func (m *MemoryStore) AddQuestions(examID int64, ids ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.questions[id] = examID
	}
}

// PutTrack stores t as is, replacing any existing track.
func (m *MemoryStore) PutTrack(t models.ReviewTrack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Version == 0 {
		t.Version = 1
	}
	m.tracks[trackKey{t.UserID, t.QuestionID}] = t
}

// Find returns the track of a user for a question.
func (m *MemoryStore) Find(_ context.Context, userID, questionID int64) (models.ReviewTrack, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[trackKey{userID, questionID}]
	return t, ok, nil
}

// Modify has the same contract as TrackRepository.Modify. The read and the
// write are separate critical sections, so concurrent callers can conflict.
func (m *MemoryStore) Modify(ctx context.Context, userID, questionID int64,
	fn func(prev *models.ReviewTrack) (models.ReviewTrack, error)) (models.ReviewTrack, error) {

	prev, found, _ := m.Find(ctx, userID, questionID)
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

	m.mu.Lock()
	defer m.mu.Unlock()
	key := trackKey{userID, questionID}
	cur, exists := m.tracks[key]
	switch {
	case found && (!exists || cur.Version != prev.Version):
		return models.ReviewTrack{}, fmt.Errorf("%w: user %d question %d", ErrConcurrentUpdate, userID, questionID)
	case !found && exists:
		return models.ReviewTrack{}, fmt.Errorf("%w: user %d question %d", ErrConcurrentUpdate, userID, questionID)
	}

	now := time.Now().UTC()
	if found {
		next.Version = prev.Version + 1
		next.CreatedAt = cur.CreatedAt
	} else {
		next.Version = 1
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	m.tracks[key] = next
	return next, nil
}

// DueToday implements the due-today tier.
func (m *MemoryStore) DueToday(_ context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	return m.tier(models.TierDueToday, userID, examID, today, limit), nil
}

// Overdue implements the overdue tier.
func (m *MemoryStore) Overdue(_ context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	return m.tier(models.TierOverdue, userID, examID, today, limit), nil
}

// NotYetDue implements the not-yet-due tier.
func (m *MemoryStore) NotYetDue(_ context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error) {
	return m.tier(models.TierNotYetDue, userID, examID, today, limit), nil
}

// Mastered implements the mastered tier.
func (m *MemoryStore) Mastered(_ context.Context, userID, examID int64, limit int) ([]int64, error) {
	return m.tier(models.TierMastered, userID, examID, models.Date{}, limit), nil
}

// Unanswered implements the unanswered tier.
func (m *MemoryStore) Unanswered(_ context.Context, userID, examID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, exam := range m.questions {
		if exam != examID {
			continue
		}
		if _, ok := m.tracks[trackKey{userID, id}]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemoryStore) tier(tier models.Tier, userID, examID int64, today models.Date, limit int) []int64 {
	if limit <= 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []models.ReviewTrack
	for key, t := range m.tracks {
		if exam, ok := m.questions[key.questionID]; key.userID != userID || !ok || exam != examID {
			continue
		}
		if models.TierOf(t, today) == tier {
			rows = append(rows, t)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].LastAnswerTime.Equal(rows[j].LastAnswerTime) {
			return rows[i].LastAnswerTime.Before(rows[j].LastAnswerTime)
		}
		return rows[i].QuestionID < rows[j].QuestionID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	ids := make([]int64, len(rows))
	for i, t := range rows {
		ids[i] = t.QuestionID
	}
	return ids
}

// PoolSize returns the number of questions in the exam pool.
func (m *MemoryStore) PoolSize(_ context.Context, examID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, exam := range m.questions {
		if exam == examID {
			n++
		}
	}
	return n, nil
}

// TierStats counts the exam pool per tier for a user.
func (m *MemoryStore) TierStats(_ context.Context, userID, examID int64, today models.Date) (models.TierStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := models.TierStats{UserID: userID, ExamID: examID}
	for id, exam := range m.questions {
		if exam != examID {
			continue
		}
		stats.PoolSize++
		t, ok := m.tracks[trackKey{userID, id}]
		if !ok {
			stats.Unanswered++
			continue
		}
		switch models.TierOf(t, today) {
		case models.TierDueToday:
			stats.DueToday++
		case models.TierOverdue:
			stats.Overdue++
		case models.TierNotYetDue:
			stats.NotYetDue++
		case models.TierMastered:
			stats.Mastered++
		}
	}
	return stats, nil
}

// DueSummaries counts pending reviews due on or before today per user.
func (m *MemoryStore) DueSummaries(_ context.Context, today models.Date) ([]models.DueSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[int64]int)
	for key, t := range m.tracks {
		if t.Status == models.StatusPending && !t.NextReviewTime.After(today) {
			counts[key.userID]++
		}
	}
	summaries := make([]models.DueSummary, 0, len(counts))
	for user, n := range counts {
		summaries = append(summaries, models.DueSummary{UserID: user, Count: n})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UserID < summaries[j].UserID })
	return summaries, nil
}

// Missed returns questions answered wrongly at least once, most errors first.
func (m *MemoryStore) Missed(_ context.Context, userID, examID int64) ([]models.MissedQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var missed []models.MissedQuestion
	for key, t := range m.tracks {
		if key.userID != userID || t.ErrorCount == 0 {
			continue
		}
		if exam, ok := m.questions[key.questionID]; !ok || exam != examID {
			continue
		}
		missed = append(missed, models.MissedQuestion{
			QuestionID:   t.QuestionID,
			QuestionType: t.QuestionType,
			ErrorCount:   t.ErrorCount,
			CorrectCount: t.CorrectCount,
			TotalCount:   t.TotalCount,
		})
	}
	sort.Slice(missed, func(i, j int) bool {
		if missed[i].ErrorCount != missed[j].ErrorCount {
			return missed[i].ErrorCount > missed[j].ErrorCount
		}
		return missed[i].QuestionID < missed[j].QuestionID
	})
	return missed, nil
}

// MemorySessions keeps exam session snapshots in memory.
type MemorySessions struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]models.ExamSession
}

// NewMemorySessions creates an empty session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[int64]models.ExamSession)}
}

// Create stores a copy of s and fills in its ID.
func (m *MemorySessions) Create(_ context.Context, s *models.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	stored := *s
	stored.QuestionIDs = append([]int64(nil), s.QuestionIDs...)
	m.sessions[s.ID] = stored
	return nil
}

// GetByID returns a copy of a stored session.
func (m *MemorySessions) GetByID(_ context.Context, id int64) (*models.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	s.QuestionIDs = append([]int64(nil), s.QuestionIDs...)
	return &s, nil
}
