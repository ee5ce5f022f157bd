package models

// DashboardSummary aggregates counts for the admin dashboard.
type DashboardSummary struct {
	Students            int     `json:"students"`
	Teachers            int     `json:"teachers"`
	Classes             int     `json:"classes"`
	PendingApplications int     `json:"pending_applications"`
	FeesCollected       float64 `json:"fees_collected"`
	FeesOutstanding     float64 `json:"fees_outstanding"`
	AttendanceRateToday float64 `json:"attendance_rate_today"`
}
