package models

import "time"

// AnnouncementType classifies announcements; events are announcements
// of type EVENT with first-class scheduling fields.
type AnnouncementType string

const (
	AnnouncementTypeGeneral  AnnouncementType = "GENERAL"
	AnnouncementTypeAcademic AnnouncementType = "ACADEMIC"
	AnnouncementTypeEvent    AnnouncementType = "EVENT"
	AnnouncementTypeUrgent   AnnouncementType = "URGENT"
)

// Valid returns true when the type is a supported value.
func (t AnnouncementType) Valid() bool {
	switch t {
	case AnnouncementTypeGeneral, AnnouncementTypeAcademic, AnnouncementTypeEvent, AnnouncementTypeUrgent:
		return true
	default:
		return false
	}
}

// Announcement represents a persisted announcement row. EventDate,
// StartTime, EndTime and Location are only set for EVENT rows.
type Announcement struct {
	ID        string           `db:"id" json:"id"`
	Title     string           `db:"title" json:"title"`
	Content   string           `db:"content" json:"content"`
	Type      AnnouncementType `db:"type" json:"type"`
	Priority  int              `db:"priority" json:"priority"`
	EventDate *time.Time       `db:"event_date" json:"event_date,omitempty"`
	StartTime *string          `db:"start_time" json:"start_time,omitempty"`
	EndTime   *string          `db:"end_time" json:"end_time,omitempty"`
	Location  *string          `db:"location" json:"location,omitempty"`
	CreatedBy string           `db:"created_by" json:"created_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter captures listing criteria.
type AnnouncementFilter struct {
	Type     *AnnouncementType
	Page     int
	PageSize int
}
