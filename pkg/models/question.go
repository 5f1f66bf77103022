package models

import "time"

// Question is a member of an exam's question pool. Only the fields the
// scheduler needs are modelled; bodies and options live elsewhere.
type Question struct {
	ID           int64     `json:"id" db:"id"`
	ExamID       int64     `json:"exam_id" db:"exam_id"`
	QuestionType int       `json:"question_type" db:"question_type"` // 1 single choice, 2 multiple choice, 3 true/false
	Title        string    `json:"title" db:"title"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MissedQuestion is a question the user has answered wrongly at least once.
type MissedQuestion struct {
	QuestionID   int64 `json:"question_id" db:"question_id"`
	QuestionType int   `json:"question_type" db:"question_type"`
	ErrorCount   int   `json:"error_count" db:"error_count"`
	CorrectCount int   `json:"correct_count" db:"correct_count"`
	TotalCount   int   `json:"total_count" db:"total_count"`
}
