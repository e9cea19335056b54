package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Username     string `gorm:"index;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;default:'user'" json:"role"`

	// Balance is in currency units. Debited when credit is assigned to an ad,
	// credited back on ad deletion (refund of unused impression credit).
	Balance    float64 `gorm:"default:0" json:"balance"`
	TotalSpend float64 `gorm:"default:0" json:"total_spend"`
	AdsCount   int     `gorm:"default:0" json:"ads_count"`

	Verified          bool    `gorm:"default:false" json:"verified"`
	VerificationToken string  `gorm:"index" json:"-"`
	GoogleID          *string `gorm:"uniqueIndex" json:"google_id,omitempty"`
	FacebookID        *string `gorm:"uniqueIndex" json:"facebook_id,omitempty"`
	Country           string  `json:"country"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
