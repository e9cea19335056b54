// models/stats.go
package models

import "time"

// AggregatedStats holds one row per (ad, day, source), produced by the daily
// rollup job and by the Facebook insights worker. The raw event tables stay
// the source of truth for the 30-day analytics window; these rows back
// longer-horizon reporting without scanning events.
type AggregatedStats struct {
	ID     string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AdID   string    `gorm:"uniqueIndex:idx_stats_day;not null" json:"ad_id"`
	Day    time.Time `gorm:"uniqueIndex:idx_stats_day;not null" json:"day"`
	Source string    `gorm:"uniqueIndex:idx_stats_day;not null" json:"source"`

	Impressions int64 `gorm:"default:0" json:"impressions"`
	Clicks      int64 `gorm:"default:0" json:"clicks"`

	// Social engagement pulled from the Facebook Graph webhook/insights.
	Reactions int64 `gorm:"default:0" json:"reactions"`
	Comments  int64 `gorm:"default:0" json:"comments"`
	Shares    int64 `gorm:"default:0" json:"shares"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditLog records admin and accounting actions (approve, reject, activate,
// credit assignment, deletion refunds).
type AuditLog struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ActorID  string `gorm:"index" json:"actor_id"`
	Action   string `gorm:"not null;index" json:"action"`
	TargetID string `gorm:"index" json:"target_id"`
	Detail   string `gorm:"type:text" json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
