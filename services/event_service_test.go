package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"ad-marketplace-system/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashViewer(t *testing.T) {
	a := hashViewer("203.0.113.9", "Mozilla/5.0")
	b := hashViewer("203.0.113.9", "Mozilla/5.0")
	assert.Equal(t, a, b, "same inputs must hash identically")
	assert.Len(t, a, 64, "sha256 hex digest")

	assert.NotEqual(t, a, hashViewer("203.0.113.10", "Mozilla/5.0"))
	assert.NotEqual(t, a, hashViewer("203.0.113.9", "curl/8.0"))
	assert.NotContains(t, a, "203.0.113.9", "raw IP must not appear in the hash")
}

func TestValidSource(t *testing.T) {
	for _, source := range models.SourceChannels {
		assert.True(t, models.ValidSource(source), source)
	}
	assert.False(t, models.ValidSource("carrier-pigeon"))
	assert.False(t, models.ValidSource(""))
}

func TestRecordImpressionRejectsNonServingAd(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewEventService(db)

	app := fiber.New()
	app.Post("/events/impression", service.RecordImpression)

	// Approved but deactivated by the owner: not serving.
	adRows := sqlmock.NewRows([]string{"id", "user_id", "status", "active", "user_activation"}).
		AddRow("ad-1", "user-1", models.AdStatusApproved, true, false)
	mock.ExpectQuery(`SELECT \* FROM "ads"`).WillReturnRows(adRows)

	body, _ := json.Marshal(fiber.Map{"ad_id": "ad-1", "source": models.SourceWeb})
	req := httptest.NewRequest("POST", "/events/impression", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "not serving")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordImpressionRejectsUnknownSource(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewEventService(db)

	app := fiber.New()
	app.Post("/events/impression", service.RecordImpression)

	body, _ := json.Marshal(fiber.Map{"ad_id": "ad-1", "source": "smoke-signal"})
	req := httptest.NewRequest("POST", "/events/impression", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
