package models

// DashboardSummary aggregates the per-user numbers shown on the dashboard.
type DashboardSummary struct {
	User                *User   `json:"user"`
	UpcomingEvents      []Event `json:"upcoming_events"`
	UnreadNotifications int     `json:"unread_notifications"`
}
