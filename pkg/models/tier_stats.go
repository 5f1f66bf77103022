package models

// TierStats counts a user's questions in an exam pool per selection tier.
type TierStats struct {
	UserID     int64 `json:"user_id" db:"user_id"`
	ExamID     int64 `json:"exam_id" db:"exam_id"`
	PoolSize   int   `json:"pool_size" db:"pool_size"`
	DueToday   int   `json:"due_today" db:"due_today"`
	Overdue    int   `json:"overdue" db:"overdue"`
	Unanswered int   `json:"unanswered" db:"unanswered"`
	NotYetDue  int   `json:"not_yet_due" db:"not_yet_due"`
	Mastered   int   `json:"mastered" db:"mastered"`
}

// DueSummary is the number of pending reviews a user owes as of a given day.
type DueSummary struct {
	UserID int64 `json:"user_id" db:"user_id"`
	Count  int   `json:"count" db:"due_count"`
}

// Tier is a selection priority class. Lower values are drawn first.
type Tier int

const (
	TierDueToday Tier = iota
	TierOverdue
	TierUnanswered
	TierNotYetDue
	TierMastered
)

// Tiers lists every tier in draw order.
var Tiers = []Tier{TierDueToday, TierOverdue, TierUnanswered, TierNotYetDue, TierMastered}

func (t Tier) String() string {
	switch t {
	case TierDueToday:
		return "due_today"
	case TierOverdue:
		return "overdue"
	case TierUnanswered:
		return "unanswered"
	case TierNotYetDue:
		return "not_yet_due"
	case TierMastered:
		return "mastered"
	default:
		return "unknown"
	}
}

// TierOf classifies an existing track relative to today. Questions without a
// track belong to TierUnanswered.
func TierOf(t ReviewTrack, today Date) Tier {
	switch {
	case t.IsMastered():
		return TierMastered
	case t.NextReviewTime.Equal(today):
		return TierDueToday
	case t.NextReviewTime.Before(today):
		return TierOverdue
	default:
		return TierNotYetDue
	}
}
