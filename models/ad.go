// models/ad.go
package models

import "time"

const (
	AdStatusPending  = "pending"
	AdStatusApproved = "approved"
	AdStatusRejected = "rejected"
)

const (
	BudgetTypeImpressions = "impressions"
	BudgetTypeOpen        = "open" // no impression budget; serves while active
)

type Ad struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	// Bilingual content
	TitleEn       string `gorm:"not null" json:"title_en"`
	TitleAr       string `json:"title_ar"`
	DescriptionEn string `gorm:"type:text" json:"description_en"`
	DescriptionAr string `gorm:"type:text" json:"description_ar"`

	PhotoURL   string `json:"photo_url"`
	TargetLink string `json:"target_link"`

	// Moderation state: pending | approved | rejected. Edits by the owner
	// force-reset to pending.
	Status          string `gorm:"not null;default:'pending';index" json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	// Both flags must be true for the ad to serve. Active is the admin-side
	// switch, UserActivation the owner-side one.
	Active         bool `gorm:"default:false" json:"active"`
	UserActivation bool `gorm:"default:false" json:"user_activation"`

	// ImpressionsCredit is the remaining budget in impression units.
	ImpressionsCredit int64  `gorm:"default:0" json:"impressions_credit"`
	BudgetType        string `gorm:"not null;default:'impressions'" json:"budget_type"`
	HasPromoted       bool   `gorm:"default:false" json:"has_promoted"`

	// Stamped on approval from the configured social media page.
	FacebookPostID  string `json:"facebook_post_id,omitempty"`
	FacebookPageURL string `json:"facebook_page_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Serving reports whether the ad is eligible to receive traffic.
func (a *Ad) Serving() bool {
	return a.Status == AdStatusApproved && a.Active && a.UserActivation
}
