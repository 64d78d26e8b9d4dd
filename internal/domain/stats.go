package domain

// PageViews is one entry of the top-pages leaderboard.
type PageViews struct {
	PageID string `json:"page_id"`
	Views  int64  `json:"views"`
}

// Stats is the read-only aggregate snapshot served by the stats endpoint.
type Stats struct {
	TotalEvents    int64       `json:"total_events"`
	TodayEvents    int64       `json:"today_events"`
	UniqueVisitors int64       `json:"unique_visitors"`
	TopPages       []PageViews `json:"top_pages"`
}
