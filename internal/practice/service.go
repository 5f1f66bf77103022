package practice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/reviewq/internal/database"
	"github.com/example/reviewq/internal/logging"
	"github.com/example/reviewq/internal/selection"
	"github.com/example/reviewq/internal/spaced_repetition"
	"github.com/example/reviewq/pkg/models"
)

// Answer is one graded answer submitted by a user.
type Answer = spaced_repetition.Answer

// TrackStore is the review track storage the service drives.
type TrackStore interface {
	selection.TierSource
	Modify(ctx context.Context, userID, questionID int64,
		fn func(prev *models.ReviewTrack) (models.ReviewTrack, error)) (models.ReviewTrack, error)
}

// StatsStore answers progress questions.
type StatsStore interface {
	TierStats(ctx context.Context, userID, examID int64, today models.Date) (models.TierStats, error)
	Missed(ctx context.Context, userID, examID int64) ([]models.MissedQuestion, error)
}

// SessionStore keeps drawn sessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.ExamSession) error
	GetByID(ctx context.Context, id int64) (*models.ExamSession, error)
}

// Options tunes a Service. Zero values pick the defaults.
type Options struct {
	// Location decides the calendar day of "today". Defaults to time.Local.
	Location *time.Location
	// MaxConflictRetries bounds re-reads after a lost write race.
	MaxConflictRetries int
	Now                func() time.Time
	Logger             *log.Logger
}

// DefaultMaxConflictRetries is used when Options leaves the bound unset.
const DefaultMaxConflictRetries = 3

// Service draws question sets and records answers.
type Service struct {
	tracks    TrackStore
	stats     StatsStore
	sessions  SessionStore
	scheduler *spaced_repetition.Ebbinghaus
	selector  *selection.Selector
	locks     *keyedMutex

	loc        *time.Location
	maxRetries int
	now        func() time.Time
	logger     *log.Logger
}

// NewService wires a service. A nil scheduler means the default policy.
func NewService(tracks TrackStore, stats StatsStore, sessions SessionStore,
	scheduler *spaced_repetition.Ebbinghaus, opts Options) *Service {

	if scheduler == nil {
		scheduler = spaced_repetition.NewEbbinghaus()
	}
	s := &Service{
		tracks:     tracks,
		stats:      stats,
		sessions:   sessions,
		scheduler:  scheduler,
		selector:   selection.NewSelector(tracks),
		locks:      newKeyedMutex(),
		loc:        opts.Location,
		maxRetries: opts.MaxConflictRetries,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.maxRetries <= 0 {
		s.maxRetries = DefaultMaxConflictRetries
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Today returns the current calendar day in the service's time zone.
func (s *Service) Today() models.Date {
	return models.DateOf(s.now(), s.loc)
}

// DrawQuestionSet picks up to quota questions of the exam for the user,
// most urgent reviews first.
func (s *Service) DrawQuestionSet(ctx context.Context, userID, examID int64, quota int) ([]int64, error) {
	today := s.Today()
	sel, err := s.selector.Draw(ctx, userID, examID, quota, today)
	if err != nil {
		var short *selection.InsufficientQuestionPoolError
		if errors.As(err, &short) {
			s.logger.Printf("Draw for user %d failed: %s", userID, short.Detail())
		}
		return nil, err
	}
	s.logger.Printf("Drew %d questions for user %d exam %d on %s: %v",
		len(sel.QuestionIDs), userID, examID, today, sel.PerTier)
	return sel.QuestionIDs, nil
}

// StartSession draws a question set and stores it as an immutable snapshot.
func (s *Service) StartSession(ctx context.Context, userID, examID int64, quota int) (*models.ExamSession, error) {
	ids, err := s.DrawQuestionSet(ctx, userID, examID, quota)
	if err != nil {
		return nil, err
	}
	session := &models.ExamSession{
		UserID:      userID,
		ExamID:      examID,
		Quota:       quota,
		QuestionIDs: ids,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Session returns a stored session snapshot.
func (s *Service) Session(ctx context.Context, id int64) (*models.ExamSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// RecordAnswer applies one answer to the user's review track and persists
// it. Answers to the same question by the same user are applied one at a
// time; a write that loses a race with another process is re-read and
// re-applied up to the retry bound, then reported as
// database.ErrConcurrentUpdate.
func (s *Service) RecordAnswer(ctx context.Context, ans Answer) (models.ReviewTrack, error) {
	if ans.UserID <= 0 || ans.QuestionID <= 0 {
		return models.ReviewTrack{}, fmt.Errorf("invalid answer: user %d question %d", ans.UserID, ans.QuestionID)
	}
	unlock := s.locks.lock(answerKey{ans.UserID, ans.QuestionID})
	defer unlock()

	today := s.Today()
	apply := func(prev *models.ReviewTrack) (models.ReviewTrack, error) {
		from := spaced_repetition.NoTrack()
		if prev != nil {
			from = spaced_repetition.ExistingTrack(*prev)
		}
		return s.scheduler.Apply(from, ans, today)
	}

	for attempt := 0; ; attempt++ {
		track, err := s.tracks.Modify(ctx, ans.UserID, ans.QuestionID, apply)
		if err == nil {
			return track, nil
		}
		if errors.Is(err, spaced_repetition.ErrInvariantViolation) {
			s.logger.Printf("Corrupt review track: %v", err)
			return models.ReviewTrack{}, err
		}
		if !errors.Is(err, database.ErrConcurrentUpdate) || attempt >= s.maxRetries {
			return models.ReviewTrack{}, fmt.Errorf("failed to record answer: %w", err)
		}
		if ctx.Err() != nil {
			return models.ReviewTrack{}, ctx.Err()
		}
		s.logger.Printf("Review track of user %d question %d changed concurrently, retrying (%d/%d)",
			ans.UserID, ans.QuestionID, attempt+1, s.maxRetries)
	}
}

// Stats counts the exam pool per tier for the user.
func (s *Service) Stats(ctx context.Context, userID, examID int64) (models.TierStats, error) {
	return s.stats.TierStats(ctx, userID, examID, s.Today())
}

// Missed lists the questions the user has got wrong, most errors first.
func (s *Service) Missed(ctx context.Context, userID, examID int64) ([]models.MissedQuestion, error) {
	return s.stats.Missed(ctx, userID, examID)
}
