package models

import "time"

// Setting is one key/value row in the settings table.
type Setting struct {
	ID        string    `db:"id" json:"id"`
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Well-known settings keys. Writes outside this set are rejected.
const (
	SettingSchoolName   = "school_name"
	SettingCurrency     = "currency"
	SettingAcademicYear = "academic_year"
	SettingThemePrimary = "theme_primary_color"
	SettingThemeAccent  = "theme_accent_color"
)

// SchoolSettings is the assembled settings view served to clients.
type SchoolSettings struct {
	SchoolName   string `json:"school_name"`
	Currency     string `json:"currency"`
	AcademicYear string `json:"academic_year"`
	ThemePrimary string `json:"theme_primary_color"`
	ThemeAccent  string `json:"theme_accent_color"`
}
