package models

import (
	"fmt"
	"time"
)

// Weekday values accepted for timetable entries.
const (
	DayMonday    = "MONDAY"
	DayTuesday   = "TUESDAY"
	DayWednesday = "WEDNESDAY"
	DayThursday  = "THURSDAY"
	DayFriday    = "FRIDAY"
	DaySaturday  = "SATURDAY"
	DaySunday    = "SUNDAY"
)

// ValidDay returns true when day is a supported weekday keyword.
func ValidDay(day string) bool {
	switch day {
	case DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday:
		return true
	default:
		return false
	}
}

// Schedule is one timetable entry: a period taught to a class.
// StartTime and EndTime are zero-padded "HH:MM" strings, so
// lexicographic comparison matches chronological order.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      *string   `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the half-open intervals [s.StartTime,
// s.EndTime) and [other.StartTime, other.EndTime) intersect on the
// same class and day. Adjacent periods do not overlap.
func (s Schedule) Overlaps(other Schedule) bool {
	if s.ClassID != other.ClassID || s.DayOfWeek != other.DayOfWeek {
		return false
	}
	return other.StartTime < s.EndTime && s.StartTime < other.EndTime
}

// ScheduleFilter captures filtering criteria for listing schedules.
type ScheduleFilter struct {
	ClassID   string
	TeacherID string
	DayOfWeek string
	Page      int
	PageSize  int
}

// ScheduleConflict describes a rejected timetable entry.
type ScheduleConflict struct {
	ExistingID string `json:"existing_id"`
	ClassID    string `json:"class_id"`
	DayOfWeek  string `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// ScheduleConflictError carries conflict details through the error chain.
type ScheduleConflictError struct {
	Conflict ScheduleConflict
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("schedule overlaps entry %s (%s %s-%s)",
		e.Conflict.ExistingID, e.Conflict.DayOfWeek, e.Conflict.StartTime, e.Conflict.EndTime)
}
