package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceSession is one roll call for a class on a date. The
// (class_id, date) pair is unique.
type AttendanceSession struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Date      time.Time `db:"date" json:"date"`
	TakenBy   string    `db:"taken_by" json:"taken_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord is one student's status within a session.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceSessionDetail joins a session with its records.
type AttendanceSessionDetail struct {
	AttendanceSession
	Records []AttendanceRecord `json:"records"`
}

// AttendanceExportRow is a flattened row for CSV export.
type AttendanceExportRow struct {
	Date        time.Time        `db:"date"`
	StudentID   string           `db:"student_id"`
	StudentName string           `db:"student_name"`
	Status      AttendanceStatus `db:"status"`
}

// AttendanceFilter captures filtering criteria for listing sessions.
type AttendanceFilter struct {
	ClassID  string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}
