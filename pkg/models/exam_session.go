package models

import "time"

// ExamSession is a drawn question set fixed at session start. QuestionIDs is a
// snapshot; later answers never change it.
type ExamSession struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	ExamID      int64     `json:"exam_id" db:"exam_id"`
	Quota       int       `json:"quota" db:"quota"`
	QuestionIDs []int64   `json:"question_ids" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
