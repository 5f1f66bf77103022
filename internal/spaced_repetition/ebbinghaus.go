package spaced_repetition

import (
	"fmt"

	"github.com/example/reviewq/pkg/models"
)

// Ebbinghaus moves a question through a fixed review cycle. A correct answer
// on the due day advances the cycle, a wrong answer restarts it, and running
// off the end of the cycle marks the question mastered.
type Ebbinghaus struct {
	policy Policy
}

// NewEbbinghaus returns a scheduler using DefaultPolicy.
func NewEbbinghaus() *Ebbinghaus {
	return &Ebbinghaus{policy: DefaultPolicy()}
}

// NewEbbinghausWithPolicy returns a scheduler for p. The policy is copied, so
// later changes to the caller's slice have no effect.
func NewEbbinghausWithPolicy(p Policy) (*Ebbinghaus, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Ebbinghaus{policy: p.clone()}, nil
}

// Policy returns a copy of the active policy.
func (e *Ebbinghaus) Policy() Policy {
	return e.policy.clone()
}

// Answer is one graded answer to a question.
type Answer struct {
	UserID       int64
	ExamID       int64
	QuestionID   int64
	QuestionType int
	Correct      bool
}

// Previous is the stored state a transition starts from. The zero value
// stands for a question the user has never answered.
type Previous struct {
	track  models.ReviewTrack
	exists bool
}

// NoTrack is the starting point for a first-ever answer.
func NoTrack() Previous {
	return Previous{}
}

// ExistingTrack wraps a stored track.
func ExistingTrack(t models.ReviewTrack) Previous {
	return Previous{track: t, exists: true}
}

// Apply computes the track that results from answering on day today. It has
// no side effects; persisting the result is up to the caller.
func (e *Ebbinghaus) Apply(prev Previous, ans Answer, today models.Date) (models.ReviewTrack, error) {
	if !prev.exists {
		next := models.ReviewTrack{
			UserID:       ans.UserID,
			ExamID:       ans.ExamID,
			QuestionID:   ans.QuestionID,
			QuestionType: ans.QuestionType,
			Status:       models.StatusPending,
		}
		e.advance(&next, 0, today)
		count(&next, ans.Correct, today)
		return next, nil
	}

	cur := prev.track
	if err := e.Check(cur); err != nil {
		return models.ReviewTrack{}, err
	}
	next := cur

	switch {
	case cur.IsMastered():
		// Only a wrong answer after a long absence demotes a mastered question.
		if !ans.Correct && today.DaysSince(cur.LastAnswerTime) > e.policy.RelapseDays {
			next.Status = models.StatusPending
			next.CycleIndex = 0
			next.NextReviewTime = today
		}
	case cur.NextReviewTime.Equal(today):
		if ans.Correct {
			e.advance(&next, cur.CycleIndex+1, today)
		} else {
			e.advance(&next, 0, today)
		}
	case cur.NextReviewTime.After(today):
		// Answered ahead of schedule: position on the cycle is kept.
	default:
		overdue := today.DaysSince(cur.NextReviewTime)
		switch {
		case !ans.Correct:
			e.advance(&next, 0, today)
		case overdue <= e.policy.OverdueGraceDays:
			e.advance(&next, cur.CycleIndex+1, today)
		default:
			// Too late to count: due again today on the same step.
			next.NextReviewTime = today
		}
	}

	count(&next, ans.Correct, today)
	return next, nil
}

// advance puts t on cycle step idx, or marks it mastered past the last step.
func (e *Ebbinghaus) advance(t *models.ReviewTrack, idx int, today models.Date) {
	if idx >= len(e.policy.CycleDays) {
		t.Status = models.StatusMastered
		t.CycleIndex = models.MasteredCycleIndex
		t.NextReviewTime = today
		return
	}
	t.Status = models.StatusPending
	t.CycleIndex = idx
	t.NextReviewTime = today.AddDays(e.policy.CycleDays[idx])
}

func count(t *models.ReviewTrack, correct bool, today models.Date) {
	if correct {
		t.CorrectCount++
	} else {
		t.ErrorCount++
	}
	t.TotalCount = t.CorrectCount + t.ErrorCount
	t.LastAnswerTime = today
}

// Check reports whether t is a state this scheduler could have produced.
func (e *Ebbinghaus) Check(t models.ReviewTrack) error {
	if !t.Status.Valid() {
		return fmt.Errorf("%w: question %d for user %d has unknown status %d",
			ErrInvariantViolation, t.QuestionID, t.UserID, int(t.Status))
	}
	switch t.Status {
	case models.StatusMastered:
		if t.CycleIndex != models.MasteredCycleIndex {
			return fmt.Errorf("%w: question %d for user %d is mastered with cycle index %d",
				ErrInvariantViolation, t.QuestionID, t.UserID, t.CycleIndex)
		}
	case models.StatusPending:
		if t.CycleIndex < 0 || t.CycleIndex >= len(e.policy.CycleDays) {
			return fmt.Errorf("%w: question %d for user %d is pending with cycle index %d (cycle length %d)",
				ErrInvariantViolation, t.QuestionID, t.UserID, t.CycleIndex, len(e.policy.CycleDays))
		}
		if t.NextReviewTime.IsZero() {
			return fmt.Errorf("%w: question %d for user %d is pending without a review date",
				ErrInvariantViolation, t.QuestionID, t.UserID)
		}
	}
	if t.CorrectCount < 0 || t.ErrorCount < 0 || t.TotalCount != t.CorrectCount+t.ErrorCount {
		return fmt.Errorf("%w: question %d for user %d has counters %d+%d != %d",
			ErrInvariantViolation, t.QuestionID, t.UserID, t.CorrectCount, t.ErrorCount, t.TotalCount)
	}
	return nil
}
