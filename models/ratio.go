// models/ratio.go
package models

import "time"

// AdminImpressionRatio is the admin-configured pricing table: how many
// impressions one currency unit buys for a given currency and promotion tier.
// Rows are versioned by UpdatedAt; refund and analytics math pick the most
// recent applicable row.
type AdminImpressionRatio struct {
	ID                 string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Currency           string `gorm:"not null;index:idx_ratio_tier" json:"currency"`
	Promoted           bool   `gorm:"not null;index:idx_ratio_tier" json:"promoted"`
	ImpressionsPerUnit int64  `gorm:"not null" json:"impressions_per_unit"`
	UpdatedBy          string `json:"updated_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}
