// services/event_service.go
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// hashViewer derives a stable pseudonymous viewer key from IP and user agent.
// Raw IPs are never stored.
func hashViewer(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// loadServingAd verifies the ad exists and is eligible for traffic.
func (s *EventService) loadServingAd(adID string) (*models.Ad, *utils.AppError) {
	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", adID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.CodeAdNotFound, "ad not found")
		}
		return nil, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ad", err)
	}
	if !ad.Serving() {
		return nil, utils.NewError(utils.CodeValidationError, "ad is not serving")
	}
	return &ad, nil
}

// RecordImpression appends an impression event. The event log is append-only;
// the ad's impressions_credit ledger field is not touched here.
func (s *EventService) RecordImpression(c *fiber.Ctx) error {
	var req struct {
		AdID   string `json:"ad_id"`
		Source string `json:"source"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.AdID == "" {
		return utils.FailCode(c, utils.CodeValidationError, "ad_id is required")
	}
	if req.Source == "" {
		req.Source = models.SourceWeb
	}
	if !models.ValidSource(req.Source) {
		return utils.FailCode(c, utils.CodeValidationError, "unknown source channel")
	}

	if _, appErr := s.loadServingAd(req.AdID); appErr != nil {
		return utils.Fail(c, appErr)
	}

	event := &models.ImpressionEvent{
		ID:         uuid.NewString(),
		AdID:       req.AdID,
		Source:     req.Source,
		ViewerHash: hashViewer(c.IP(), c.Get("User-Agent")),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.DB.Create(event).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to record impression", err))
	}
	return utils.Created(c, "impression recorded", fiber.Map{"id": event.ID})
}

// RecordClick appends a click event, optionally linked to the impression
// that produced it.
func (s *EventService) RecordClick(c *fiber.Ctx) error {
	var req struct {
		AdID         string  `json:"ad_id"`
		Source       string  `json:"source"`
		ImpressionID *string `json:"impression_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.AdID == "" {
		return utils.FailCode(c, utils.CodeValidationError, "ad_id is required")
	}
	if req.Source == "" {
		req.Source = models.SourceWeb
	}
	if !models.ValidSource(req.Source) {
		return utils.FailCode(c, utils.CodeValidationError, "unknown source channel")
	}

	if _, appErr := s.loadServingAd(req.AdID); appErr != nil {
		return utils.Fail(c, appErr)
	}

	if req.ImpressionID != nil && *req.ImpressionID != "" {
		var count int64
		if err := s.DB.Model(&models.ImpressionEvent{}).
			Where("id = ? AND ad_id = ?", *req.ImpressionID, req.AdID).
			Count(&count).Error; err != nil {
			return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to verify impression", err))
		}
		if count == 0 {
			return utils.FailCode(c, utils.CodeValidationError, "impression_id does not belong to this ad")
		}
	}

	event := &models.ClickEvent{
		ID:           uuid.NewString(),
		AdID:         req.AdID,
		ImpressionID: req.ImpressionID,
		Source:       req.Source,
		ViewerHash:   hashViewer(c.IP(), c.Get("User-Agent")),
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.DB.Create(event).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to record click", err))
	}
	return utils.Created(c, "click recorded", fiber.Map{"id": event.ID})
}
