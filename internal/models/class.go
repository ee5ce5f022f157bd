package models

import "time"

// Class represents a class (homeroom group) stored in the classes table.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Section   string    `db:"section" json:"section"`
	Grade     string    `db:"grade" json:"grade"`
	Capacity  int       `db:"capacity" json:"capacity"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail joins the class with its teacher name and roster size.
type ClassDetail struct {
	Class
	TeacherName  *string `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentCount int     `db:"student_count" json:"student_count"`
}

// ClassFilter captures filtering criteria for listing classes.
type ClassFilter struct {
	Grade     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ClassStudent is a roster row with student identity attached.
type ClassStudent struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
