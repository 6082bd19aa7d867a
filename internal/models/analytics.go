package models

import "time"

// DashboardAnalytics is the headline snapshot shown on the landing view.
type DashboardAnalytics struct {
	TotalDocuments  int            `json:"total_documents"`
	TotalUsers      int            `json:"total_users"`
	UploadsToday    int            `json:"uploads_today"`
	SearchesToday   int            `json:"searches_today"`
	StorageUsed     int64          `json:"storage_used"`
	ByCategory      map[string]int `json:"by_category"`
	ByDepartment    map[string]int `json:"by_department"`
	RecentDocuments []Document     `json:"recent_documents"`
}

// DetailedAnalytics is keyed by a time range (7d, 30d, 90d, 1y).
type DetailedAnalytics struct {
	Range         string           `json:"range"`
	UploadsByDay  []TimeSeriesBin  `json:"uploads_by_day"`
	SearchesByDay []TimeSeriesBin  `json:"searches_by_day"`
	TopCategories []CategoryCount  `json:"top_categories"`
	TopUploaders  []UploaderCount  `json:"top_uploaders"`
}

// TimeSeriesBin is one point of a daily series.
type TimeSeriesBin struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryCount ranks a category by document volume.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// UploaderCount ranks a user by upload volume.
type UploaderCount struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Count    int    `json:"count"`
}

// UserAnalytics aggregates account activity for the admin view.
type UserAnalytics struct {
	ActiveToday   int            `json:"active_today"`
	ActiveWeek    int            `json:"active_week"`
	NewThisMonth  int            `json:"new_this_month"`
	LoginsByDay   []TimeSeriesBin `json:"logins_by_day"`
	RoleBreakdown map[string]int `json:"role_breakdown"`
}

// SystemHealth reports backend liveness indicators.
type SystemHealth struct {
	Status         string  `json:"status"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
	StorageUsedPct float64 `json:"storage_used_pct"`
	APILatencyMS   float64 `json:"api_latency_ms"`
	QueueDepth     int     `json:"queue_depth"`
}

// ActivityLog is a paginated slice of the platform-wide activity feed.
type ActivityLog struct {
	Entries    []ActivityEntry `json:"entries"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// AnalyticsSnapshot groups every analytics facet with its own freshness mark.
type AnalyticsSnapshot struct {
	Dashboard *DashboardAnalytics
	Detailed  *DetailedAnalytics
	Users     *UserAnalytics
	Health    *SystemHealth
	Activity  *ActivityLog

	DashboardUpdated time.Time
	DetailedUpdated  time.Time
	UsersUpdated     time.Time
	HealthUpdated    time.Time
	ActivityUpdated  time.Time
}
