package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestSessionCache(t *testing.T) {
	cache := newSessionCache()

	_, ok := cache.get(1)
	assert.False(t, ok)

	cache.put(&CheckoutSession{OrderID: 1, PurchaseID: "p-1", PaymentStatus: "open"})
	session, ok := cache.get(1)
	require.True(t, ok)
	assert.Equal(t, "p-1", session.PurchaseID)

	cache.setStatus(1, "checkout.session.completed")
	session, _ = cache.get(1)
	assert.Equal(t, "checkout.session.completed", session.PaymentStatus)

	// setStatus on an unknown order is a no-op, not a panic
	cache.setStatus(99, "whatever")
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPaymentService(db, &PaymobClient{HMACSecret: "webhook-secret"})

	app := fiber.New()
	app.Post("/payments/webhook", service.HandleWebhook)

	callback := sampleCallback()
	body, err := json.Marshal(fiber.Map{"obj": callback})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/payments/webhook?hmac=deadbeef", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "INVALID_SIGNATURE")

	// A rejected signature must never reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhookIgnoresUnknownEventAfterVerification(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPaymentService(db, &PaymobClient{HMACSecret: "webhook-secret"})
	// Drop the failure handler so the failed-payment type has no registration.
	delete(service.handlers, "payment_intent.payment_failed")

	callback := sampleCallback()
	callback.Success = false
	signature := ComputeHMAC(callback, "webhook-secret")

	body, err := json.Marshal(fiber.Map{"obj": callback})
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/payments/webhook", service.HandleWebhook)

	req := httptest.NewRequest("POST", "/payments/webhook?hmac="+signature, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImpressionsForAmount(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewPaymentService(db, &PaymobClient{})

	rows := sqlmock.NewRows([]string{"id", "currency", "promoted", "impressions_per_unit"}).
		AddRow("r-1", "sar", false, 100)
	mock.ExpectQuery(`SELECT \* FROM "admin_impression_ratios"`).WillReturnRows(rows)

	assert.Equal(t, int64(2500), service.impressionsForAmount(2500, "sar"),
		"25 currency units at 100 impressions each")

	// No ratio configured yields zero impressions, not an error.
	mock.ExpectQuery(`SELECT \* FROM "admin_impression_ratios"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	assert.Equal(t, int64(0), service.impressionsForAmount(2500, "usd"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
