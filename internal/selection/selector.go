package selection

import (
	"context"
	"fmt"

	"github.com/example/reviewq/pkg/models"
)

// Selection is a drawn question set in draw order.
type Selection struct {
	QuestionIDs []int64
	// PerTier counts how many ids each tier contributed.
	PerTier map[models.Tier]int
}

// Selector fills a quota from the tiers in priority order.
type Selector struct {
	classifier *Classifier
	src        TierSource
}

// NewSelector creates a selector over src.
func NewSelector(src TierSource) *Selector {
	return &Selector{classifier: NewClassifier(src), src: src}
}

// Draw picks min(quota, pool size) distinct questions, taking each tier only
// as far as the previous ones fell short. It reads but never writes.
func (s *Selector) Draw(ctx context.Context, userID, examID int64, quota int, today models.Date) (Selection, error) {
	if quota <= 0 {
		return Selection{}, fmt.Errorf("%w: got %d", ErrInvalidQuota, quota)
	}
	pool, err := s.src.PoolSize(ctx, examID)
	if err != nil {
		return Selection{}, fmt.Errorf("failed to get pool size: %w", err)
	}
	target := quota
	if pool < target {
		target = pool
	}
	short := &InsufficientQuestionPoolError{UserID: userID, ExamID: examID, Quota: quota, Target: target}
	if target == 0 {
		return Selection{}, short
	}

	sel := Selection{
		QuestionIDs: make([]int64, 0, target),
		PerTier:     make(map[models.Tier]int, len(models.Tiers)),
	}
	seen := make(map[int64]struct{}, target)
	for _, tier := range models.Tiers {
		need := target - len(sel.QuestionIDs)
		if need == 0 {
			break
		}
		ids, err := s.classifier.Candidates(ctx, tier, userID, examID, today, need)
		if err != nil {
			return Selection{}, err
		}
		for _, id := range ids {
			if len(sel.QuestionIDs) == target {
				break
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			sel.QuestionIDs = append(sel.QuestionIDs, id)
			sel.PerTier[tier]++
		}
	}

	if len(sel.QuestionIDs) < target {
		short.Found = len(sel.QuestionIDs)
		return Selection{}, short
	}
	return sel, nil
}
