package selection

import (
	"context"
	"fmt"

	"github.com/example/reviewq/pkg/models"
)

// TierSource lists a user's questions of one exam pool by tier. Every method
// returns at most limit ids and nothing when limit <= 0. Tracked tiers are
// ordered by last answer date, then question id; Unanswered by question id.
type TierSource interface {
	DueToday(ctx context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error)
	Overdue(ctx context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error)
	Unanswered(ctx context.Context, userID, examID int64, limit int) ([]int64, error)
	NotYetDue(ctx context.Context, userID, examID int64, today models.Date, limit int) ([]int64, error)
	Mastered(ctx context.Context, userID, examID int64, limit int) ([]int64, error)
	PoolSize(ctx context.Context, examID int64) (int, error)
}

// Classifier splits an exam pool into the five selection tiers for one user.
type Classifier struct {
	src TierSource
}

// NewClassifier creates a classifier over src.
func NewClassifier(src TierSource) *Classifier {
	return &Classifier{src: src}
}

// Candidates returns up to need ids of the given tier.
func (c *Classifier) Candidates(ctx context.Context, tier models.Tier, userID, examID int64, today models.Date, need int) ([]int64, error) {
	var (
		ids []int64
		err error
	)
	switch tier {
	case models.TierDueToday:
		ids, err = c.src.DueToday(ctx, userID, examID, today, need)
	case models.TierOverdue:
		ids, err = c.src.Overdue(ctx, userID, examID, today, need)
	case models.TierUnanswered:
		ids, err = c.src.Unanswered(ctx, userID, examID, need)
	case models.TierNotYetDue:
		ids, err = c.src.NotYetDue(ctx, userID, examID, today, need)
	case models.TierMastered:
		ids, err = c.src.Mastered(ctx, userID, examID, need)
	default:
		return nil, fmt.Errorf("selection: unknown tier %d", int(tier))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s questions: %w", tier, err)
	}
	return ids, nil
}
