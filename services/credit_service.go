// services/credit_service.go
package services

import (
	"errors"
	"log"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditService struct {
	DB *gorm.DB
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{DB: db}
}

// LatestRatio returns the most recent ratio row for (currency, promoted).
// Rows are versioned by updated_at; callers always get the newest one.
func LatestRatio(tx *gorm.DB, currency string, promoted bool) (*models.AdminImpressionRatio, error) {
	var ratio models.AdminImpressionRatio
	err := tx.Where("currency = ? AND promoted = ?", currency, promoted).
		Order("updated_at DESC").
		First(&ratio).Error
	if err != nil {
		return nil, err
	}
	return &ratio, nil
}

// GetRatios lists all configured ratio rows, newest first.
func (s *CreditService) GetRatios(c *fiber.Ctx) error {
	var ratios []models.AdminImpressionRatio
	if err := s.DB.Order("updated_at DESC").Find(&ratios).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ratios", err))
	}
	return utils.OK(c, "ratios fetched", ratios)
}

// UpsertRatio creates a new versioned row for (currency, promoted). Old rows
// are kept; reads pick the newest by updated_at.
func (s *CreditService) UpsertRatio(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)

	var req struct {
		Currency           string `json:"currency"`
		Promoted           bool   `json:"promoted"`
		ImpressionsPerUnit int64  `json:"impressions_per_unit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.Currency == "" {
		return utils.FailCode(c, utils.CodeValidationError, "currency is required")
	}
	if req.ImpressionsPerUnit <= 0 {
		return utils.FailCode(c, utils.CodeValidationError, "impressions_per_unit must be positive")
	}

	ratio := &models.AdminImpressionRatio{
		ID:                 uuid.NewString(),
		Currency:           req.Currency,
		Promoted:           req.Promoted,
		ImpressionsPerUnit: req.ImpressionsPerUnit,
		UpdatedBy:          adminID,
	}
	if err := s.DB.Create(ratio).Error; err != nil {
		log.Printf("[Credits] ratio upsert failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to save ratio", err))
	}
	return utils.Created(c, "ratio saved", ratio)
}

// GetCurrentRatio resolves the ratio row analytics and refunds would use for
// the given tier right now.
func (s *CreditService) GetCurrentRatio(c *fiber.Ctx) error {
	currency := c.Query("currency", refundCurrency)
	promoted := c.QueryBool("promoted", false)

	ratio, err := LatestRatio(s.DB, currency, promoted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeRatioNotFound, "no ratio configured for this tier")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ratio", err))
	}
	return utils.OK(c, "ratio fetched", ratio)
}
