package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCallback() *TransactionCallback {
	t := &TransactionCallback{
		ID:                  9_112_233,
		AmountCents:         5000,
		CreatedAt:           "2026-08-01T10:00:00.000000",
		Currency:            "sar",
		IntegrationID:       42,
		Is3DSecure:          true,
		IsStandalonePayment: true,
		Owner:               7,
		Success:             true,
	}
	t.Order.ID = 556677
	t.SourceData.Pan = "2346"
	t.SourceData.SubType = "MasterCard"
	t.SourceData.Type = "card"
	return t
}

func TestVerifyHMAC(t *testing.T) {
	client := &PaymobClient{HMACSecret: "test-secret"}
	callback := sampleCallback()
	signature := ComputeHMAC(callback, "test-secret")
	require.Len(t, signature, 128, "HMAC-SHA512 hex digest")

	assert.True(t, client.VerifyHMAC(callback, signature))
	assert.False(t, client.VerifyHMAC(callback, ""), "empty signature must be rejected")
	assert.False(t, client.VerifyHMAC(callback, signature[:127]+"0"))

	wrongSecret := &PaymobClient{HMACSecret: "other-secret"}
	assert.False(t, wrongSecret.VerifyHMAC(callback, signature))

	noSecret := &PaymobClient{}
	assert.False(t, noSecret.VerifyHMAC(callback, signature), "unset secret must never verify")
}

func TestVerifyHMACRejectsTamperedAmount(t *testing.T) {
	client := &PaymobClient{HMACSecret: "test-secret"}
	callback := sampleCallback()
	signature := ComputeHMAC(callback, "test-secret")

	callback.AmountCents = 50_000
	assert.False(t, client.VerifyHMAC(callback, signature),
		"changing amount_cents after signing must invalidate the signature")
}

func TestVerifyHMACRejectsTamperedOrder(t *testing.T) {
	client := &PaymobClient{HMACSecret: "test-secret"}
	callback := sampleCallback()
	signature := ComputeHMAC(callback, "test-secret")

	callback.Order.ID = 999999
	assert.False(t, client.VerifyHMAC(callback, signature))
}

func TestEventType(t *testing.T) {
	callback := sampleCallback()
	assert.Equal(t, "checkout.session.completed", callback.EventType())

	callback.Pending = true
	assert.Equal(t, "payment_intent.payment_failed", callback.EventType())

	callback.Pending = false
	callback.Success = false
	assert.Equal(t, "payment_intent.payment_failed", callback.EventType())
}
