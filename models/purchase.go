// models/purchase.go
package models

import "time"

const (
	PurchaseStatusPending  = "pending"
	PurchaseStatusPaid     = "paid"
	PurchaseStatusFailed   = "failed"
	PurchaseStatusRefunded = "refunded"
)

// Purchase records a credit purchase transaction against the payment gateway.
type Purchase struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	Currency    string `gorm:"not null;default:'sar'" json:"currency"`
	Impressions int64  `json:"impressions"`

	Status string `gorm:"not null;default:'pending';index" json:"status"`

	// Gateway linkage
	GatewayOrderID   string `gorm:"index" json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
