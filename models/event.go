// models/event.go
package models

import "time"

// Source channels for impression/click events. Analytics zero-fills every
// channel in this list even when no events exist for it.
const (
	SourceWeb       = "web"
	SourceFacebook  = "facebook"
	SourceTiktok    = "tiktok"
	SourceInstagram = "instagram"
	SourceTwitter   = "twitter"
	SourceOther     = "other"
)

var SourceChannels = []string{
	SourceWeb, SourceFacebook, SourceTiktok, SourceInstagram, SourceTwitter, SourceOther,
}

func ValidSource(s string) bool {
	for _, known := range SourceChannels {
		if s == known {
			return true
		}
	}
	return false
}

// ImpressionEvent is append-only; rows are never updated.
type ImpressionEvent struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AdID       string    `gorm:"index;not null" json:"ad_id"`
	Source     string    `gorm:"not null;default:'web'" json:"source"`
	ViewerHash string    `gorm:"index" json:"viewer_hash,omitempty"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
}

// ClickEvent optionally links back to the impression that produced it.
type ClickEvent struct {
	ID           string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AdID         string    `gorm:"index;not null" json:"ad_id"`
	ImpressionID *string   `gorm:"index" json:"impression_id,omitempty"`
	Source       string    `gorm:"not null;default:'web'" json:"source"`
	ViewerHash   string    `json:"viewer_hash,omitempty"`
	OccurredAt   time.Time `gorm:"index;not null" json:"occurred_at"`
}
