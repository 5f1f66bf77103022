package models

import (
	"fmt"
	"time"
)

// TrackStatus is the review state of a question for one user.
type TrackStatus int

const (
	// StatusPending means the question is on the review cycle.
	StatusPending TrackStatus = 0
	// StatusMastered means the question has left the review cycle.
	StatusMastered TrackStatus = 1
)

// MasteredCycleIndex is the cycle index carried by every mastered track.
const MasteredCycleIndex = -1

func (s TrackStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusMastered:
		return "mastered"
	default:
		return fmt.Sprintf("TrackStatus(%d)", int(s))
	}
}

// Valid reports whether s is a known status.
func (s TrackStatus) Valid() bool {
	return s == StatusPending || s == StatusMastered
}

// ReviewTrack is the review schedule of one question for one user. A row exists
// only once the user has answered the question at least once.
type ReviewTrack struct {
	UserID         int64       `json:"user_id" db:"user_id"`
	QuestionID     int64       `json:"question_id" db:"question_id"`
	ExamID         int64       `json:"exam_id" db:"exam_id"`
	QuestionType   int         `json:"question_type" db:"question_type"`
	CorrectCount   int         `json:"correct_count" db:"correct_count"`
	ErrorCount     int         `json:"error_count" db:"error_count"`
	TotalCount     int         `json:"total_count" db:"total_count"`
	LastAnswerTime Date        `json:"last_answer_time" db:"last_answer_time"`
	NextReviewTime Date        `json:"next_review_time" db:"next_review_time"`
	Status         TrackStatus `json:"status" db:"status"`
	CycleIndex     int         `json:"cycle_index" db:"cycle_index"`
	Version        int         `json:"version" db:"version"` // optimistic lock
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// IsMastered reports whether the track has left the review cycle.
func (t ReviewTrack) IsMastered() bool {
	return t.Status == StatusMastered
}
