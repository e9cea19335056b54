package models

import "time"

const (
	PlatformFacebook = "facebook"
	PlatformTiktok   = "tiktok"
)

// SocialMediaPage is a page the marketplace posts approved ads to. The page
// access token is stored server-side and never serialized.
type SocialMediaPage struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Platform    string `gorm:"not null;index" json:"platform"`
	PageID      string `gorm:"uniqueIndex;not null" json:"page_id"`
	PageName    string `json:"page_name"`
	PageURL     string `json:"page_url"`
	AccessToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
