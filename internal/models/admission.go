package models

import "time"

// AdmissionStatus tracks an application through the admissions funnel.
type AdmissionStatus string

const (
	AdmissionStatusSubmitted AdmissionStatus = "SUBMITTED"
	AdmissionStatusReviewing AdmissionStatus = "REVIEWING"
	AdmissionStatusInterview AdmissionStatus = "INTERVIEW"
	AdmissionStatusAccepted  AdmissionStatus = "ACCEPTED"
	AdmissionStatusRejected  AdmissionStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s AdmissionStatus) Valid() bool {
	switch s {
	case AdmissionStatusSubmitted, AdmissionStatusReviewing, AdmissionStatusInterview, AdmissionStatusAccepted, AdmissionStatusRejected:
		return true
	default:
		return false
	}
}

// AdmissionApplication is a public intake record. ApplicationNumber is
// the human-readable identifier shared with applicants.
type AdmissionApplication struct {
	ID                string          `db:"id" json:"id"`
	ApplicationNumber string          `db:"application_number" json:"application_number"`
	StudentName       string          `db:"student_name" json:"student_name"`
	StudentBirthDate  time.Time       `db:"student_birth_date" json:"student_birth_date"`
	DesiredGrade      string          `db:"desired_grade" json:"desired_grade"`
	ParentName        string          `db:"parent_name" json:"parent_name"`
	ParentEmail       string          `db:"parent_email" json:"parent_email"`
	ParentPhone       string          `db:"parent_phone" json:"parent_phone"`
	Address           string          `db:"address" json:"address"`
	Status            AdmissionStatus `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// AdmissionTimelineEntry is an append-only status-change record.
type AdmissionTimelineEntry struct {
	ID            string          `db:"id" json:"id"`
	ApplicationID string          `db:"application_id" json:"application_id"`
	Status        AdmissionStatus `db:"status" json:"status"`
	Note          string          `db:"note" json:"note"`
	ActorID       *string         `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// AdmissionDetail joins an application with its timeline.
type AdmissionDetail struct {
	AdmissionApplication
	Timeline []AdmissionTimelineEntry `json:"timeline"`
}

// AdmissionFilter captures listing criteria.
type AdmissionFilter struct {
	Status   *AdmissionStatus
	Search   string
	Page     int
	PageSize int
}
