package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientQuestionPool matches every *InsufficientQuestionPoolError.
	ErrInsufficientQuestionPool = errors.New("not enough questions configured for this exam")
	// ErrInvalidQuota is returned for a quota below one.
	ErrInvalidQuota = errors.New("selection: quota must be positive")
)

// InsufficientQuestionPoolError reports that the tiers together could not
// fill the requested set. Nothing is returned alongside it.
type InsufficientQuestionPoolError struct {
	UserID int64
	ExamID int64
	Quota  int
	Target int
	Found  int
}

func (e *InsufficientQuestionPoolError) Error() string {
	return ErrInsufficientQuestionPool.Error()
}

// Detail describes the shortfall for logs.
func (e *InsufficientQuestionPoolError) Detail() string {
	return fmt.Sprintf("exam %d user %d: quota %d, target %d, found %d",
		e.ExamID, e.UserID, e.Quota, e.Target, e.Found)
}

func (e *InsufficientQuestionPoolError) Is(target error) bool {
	return target == ErrInsufficientQuestionPool
}
