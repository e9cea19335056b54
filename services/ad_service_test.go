package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateActivation(t *testing.T) {
	approved := func() *models.Ad {
		return &models.Ad{
			Status:            models.AdStatusApproved,
			BudgetType:        models.BudgetTypeImpressions,
			ImpressionsCredit: 100,
		}
	}

	t.Run("activating an approved funded ad succeeds", func(t *testing.T) {
		assert.Nil(t, validateActivation(approved(), false, true))
	})

	t.Run("no-op toggles are rejected", func(t *testing.T) {
		err := validateActivation(approved(), true, true)
		require.NotNil(t, err)
		assert.Equal(t, utils.CodeValidationError, err.Code)

		err = validateActivation(approved(), false, false)
		require.NotNil(t, err)
		assert.Equal(t, utils.CodeValidationError, err.Code)
	})

	t.Run("pending ads cannot be activated", func(t *testing.T) {
		ad := approved()
		ad.Status = models.AdStatusPending
		err := validateActivation(ad, false, true)
		require.NotNil(t, err)
		assert.Contains(t, err.Message, "approved")
	})

	t.Run("impression-budget ads need credit", func(t *testing.T) {
		ad := approved()
		ad.ImpressionsCredit = 0
		err := validateActivation(ad, false, true)
		require.NotNil(t, err)
		assert.Contains(t, err.Message, "credit")
	})

	t.Run("open-budget ads activate without credit", func(t *testing.T) {
		ad := approved()
		ad.BudgetType = models.BudgetTypeOpen
		ad.ImpressionsCredit = 0
		assert.Nil(t, validateActivation(ad, false, true))
	})

	t.Run("deactivation is allowed regardless of status", func(t *testing.T) {
		ad := approved()
		ad.Status = models.AdStatusRejected
		assert.Nil(t, validateActivation(ad, true, false))
	})
}

func TestLatestRatioPicksNewestRow(t *testing.T) {
	db, mock := newMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "currency", "promoted", "impressions_per_unit"}).
		AddRow("r-new", "sar", false, 150)
	mock.ExpectQuery(`SELECT \* FROM "admin_impression_ratios" WHERE currency = \$1 AND promoted = \$2 ORDER BY updated_at DESC`).
		WithArgs("sar", false, 1).
		WillReturnRows(rows)

	ratio, err := LatestRatio(db, "sar", false)
	require.NoError(t, err)
	assert.Equal(t, "r-new", ratio.ID)
	assert.Equal(t, int64(150), ratio.ImpressionsPerUnit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignCreditInsufficientBalance(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAdService(db, nil)

	app := fiber.New()
	app.Post("/ads/:id/credit", func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		c.Locals("user_role", models.RoleUser)
		return service.AssignCredit(c)
	})

	adRows := sqlmock.NewRows([]string{"id", "user_id", "status", "impressions_credit"}).
		AddRow("ad-1", "user-1", models.AdStatusApproved, 0)
	mock.ExpectQuery(`SELECT \* FROM "ads"`).WillReturnRows(adRows)

	mock.ExpectBegin()
	userRows := sqlmock.NewRows([]string{"id", "balance"}).AddRow("user-1", 10.0)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows)
	mock.ExpectRollback()

	body, _ := json.Marshal(fiber.Map{"amount": 50})
	req := httptest.NewRequest("POST", "/ads/ad-1/credit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "INSUFFICIENT_BALANCE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignCreditRejectsNonPositiveAmount(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAdService(db, nil)

	app := fiber.New()
	app.Post("/ads/:id/credit", func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		c.Locals("user_role", models.RoleUser)
		return service.AssignCredit(c)
	})

	for _, amount := range []int64{0, -5} {
		body, _ := json.Marshal(fiber.Map{"amount": amount})
		req := httptest.NewRequest("POST", "/ads/ad-1/credit", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
	// Validation failures never reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newDeleteAdApp(service *AdService) *fiber.App {
	app := fiber.New()
	app.Delete("/ads/:id", func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		c.Locals("user_role", models.RoleUser)
		return service.DeleteAd(c)
	})
	return app
}

func TestDeleteAdRefundsFlooredCredit(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAdService(db, nil)
	app := newDeleteAdApp(service)

	adColumns := []string{"id", "user_id", "status", "has_promoted", "impressions_credit", "photo_url"}

	// Initial ownership load sees an older credit value; the refund must come
	// from the locked re-read inside the transaction, where a concurrent
	// assignment has already committed 5000 credit.
	mock.ExpectQuery(`SELECT \* FROM "ads"`).
		WillReturnRows(sqlmock.NewRows(adColumns).
			AddRow("ad-1", "user-1", models.AdStatusApproved, false, 0, ""))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "ads" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(adColumns).
			AddRow("ad-1", "user-1", models.AdStatusApproved, false, 5000, ""))
	mock.ExpectQuery(`SELECT \* FROM "admin_impression_ratios"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "currency", "promoted", "impressions_per_unit"}).
			AddRow("r-1", "sar", false, 1000))

	// floor(5000/1000) = 5 credited back to the owner.
	mock.ExpectExec(`UPDATE "users" SET "balance"=balance \+ \$1`).
		WithArgs(int64(5), sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "impression_events"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "click_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "ads_count"=ads_count - 1`).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("audit-1"))
	mock.ExpectExec(`DELETE FROM "ads"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, err := app.Test(httptest.NewRequest("DELETE", "/ads/ad-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `"refund":5`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAdSubUnitCreditRefundsNothing(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAdService(db, nil)
	app := newDeleteAdApp(service)

	adColumns := []string{"id", "user_id", "status", "has_promoted", "impressions_credit", "photo_url"}

	mock.ExpectQuery(`SELECT \* FROM "ads"`).
		WillReturnRows(sqlmock.NewRows(adColumns).
			AddRow("ad-1", "user-1", models.AdStatusApproved, false, 999, ""))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "ads" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(adColumns).
			AddRow("ad-1", "user-1", models.AdStatusApproved, false, 999, ""))
	mock.ExpectQuery(`SELECT \* FROM "admin_impression_ratios"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "currency", "promoted", "impressions_per_unit"}).
			AddRow("r-1", "sar", false, 1000))

	// floor(999/1000) = 0: no balance update is issued at all.
	mock.ExpectExec(`DELETE FROM "impression_events"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "click_events"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "users" SET "ads_count"=ads_count - 1`).
		WithArgs(sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("audit-1"))
	mock.ExpectExec(`DELETE FROM "ads"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp, err := app.Test(httptest.NewRequest("DELETE", "/ads/ad-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `"refund":0`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAdFailsWithoutRatio(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewAdService(db, nil)
	app := newDeleteAdApp(service)

	adColumns := []string{"id", "user_id", "status", "has_promoted", "impressions_credit", "photo_url"}

	mock.ExpectQuery(`SELECT \* FROM "ads"`).
		WillReturnRows(sqlmock.NewRows(adColumns).
			AddRow("ad-1", "user-1", models.AdStatusApproved, true, 5000, ""))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "ads" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(adColumns).
			AddRow("ad-1", "user-1", models.AdStatusApproved, true, 5000, ""))
	mock.ExpectQuery(`SELECT \* FROM "admin_impression_ratios"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	resp, err := app.Test(httptest.NewRequest("DELETE", "/ads/ad-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "VALIDATION_ERROR")
	assert.Contains(t, string(raw), "ratio")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdServing(t *testing.T) {
	ad := &models.Ad{Status: models.AdStatusApproved, Active: true, UserActivation: true}
	assert.True(t, ad.Serving())

	for _, mutate := range []func(*models.Ad){
		func(a *models.Ad) { a.Status = models.AdStatusPending },
		func(a *models.Ad) { a.Active = false },
		func(a *models.Ad) { a.UserActivation = false },
	} {
		broken := &models.Ad{Status: models.AdStatusApproved, Active: true, UserActivation: true}
		mutate(broken)
		assert.False(t, broken.Serving())
	}
}
