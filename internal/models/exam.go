package models

import "time"

// Exam is scoped to a class and subject.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Date      time.Time `db:"date" json:"date"`
	MaxMarks  float64   `db:"max_marks" json:"max_marks"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExamResult records one student's marks for an exam. The
// (exam_id, student_id) pair is unique.
type ExamResult struct {
	ID        string    `db:"id" json:"id"`
	ExamID    string    `db:"exam_id" json:"exam_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Marks     float64   `db:"marks" json:"marks"`
	Grade     string    `db:"grade" json:"grade"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ExamFilter captures filtering criteria for listing exams.
type ExamFilter struct {
	ClassID   string
	SubjectID string
	Page      int
	PageSize  int
}
