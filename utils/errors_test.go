package utils

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, StatusForCode(CodeValidationError))
	assert.Equal(t, fiber.StatusUnauthorized, StatusForCode(CodeInvalidSignature))
	assert.Equal(t, fiber.StatusNotFound, StatusForCode(CodeAdNotFound))
	assert.Equal(t, fiber.StatusConflict, StatusForCode(CodeDuplicateEmail))
	assert.Equal(t, fiber.StatusBadGateway, StatusForCode(CodePaymentError))
	assert.Equal(t, fiber.StatusInternalServerError, StatusForCode(ErrorCode("NOT_A_REAL_CODE")),
		"unmapped codes fall back to 500")
}

func TestAppError(t *testing.T) {
	plain := NewError(CodeAdNotFound, "ad not found")
	assert.Equal(t, "AD_NOT_FOUND: ad not found", plain.Error())

	wrapped := WrapError(CodeDatabaseError, "query failed", errors.New("connection reset"))
	assert.Equal(t, "DATABASE_ERROR: query failed (connection reset)", wrapped.Error())
	assert.Equal(t, "connection reset", wrapped.Details)

	nilWrapped := WrapError(CodeDatabaseError, "query failed", nil)
	assert.Empty(t, nilWrapped.Details)
}

func TestResponseEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c *fiber.Ctx) error {
		return OK(c, "fetched", fiber.Map{"n": 1})
	})
	app.Get("/created", func(c *fiber.Ctx) error {
		return Created(c, "made", nil)
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return FailCode(c, CodeInsufficientBalance, "balance too low")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"success":true,"message":"fetched","data":{"n":1}}`, string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/created", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"INSUFFICIENT_BALANCE","message":"balance too low"}}`,
		string(body))
}
