// services/social_service.go
package services

import (
	"errors"
	"log"
	"os"
	"time"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SocialService struct {
	DB *gorm.DB
}

func NewSocialService(db *gorm.DB) *SocialService {
	return &SocialService{DB: db}
}

// --- Page management (admin) ---

func (s *SocialService) GetPages(c *fiber.Ctx) error {
	var pages []models.SocialMediaPage
	if err := s.DB.Find(&pages).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch pages", err))
	}
	return utils.OK(c, "pages fetched", pages)
}

func (s *SocialService) UpsertPage(c *fiber.Ctx) error {
	var req struct {
		Platform    string `json:"platform"`
		PageID      string `json:"page_id"`
		PageName    string `json:"page_name"`
		PageURL     string `json:"page_url"`
		AccessToken string `json:"access_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.PageID == "" || req.Platform == "" {
		return utils.FailCode(c, utils.CodeValidationError, "platform and page_id are required")
	}

	page := &models.SocialMediaPage{
		ID:          uuid.NewString(),
		Platform:    req.Platform,
		PageID:      req.PageID,
		PageName:    req.PageName,
		PageURL:     req.PageURL,
		AccessToken: req.AccessToken,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "page_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform", "page_name", "page_url", "access_token", "updated_at",
		}),
	}).Create(page).Error
	if err != nil {
		log.Printf("[Social] page upsert failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to save page", err))
	}
	return utils.Created(c, "page saved", page)
}

// --- Facebook Graph webhook ---

// VerifyFacebookWebhook answers the Graph API subscription challenge.
func (s *SocialService) VerifyFacebookWebhook(c *fiber.Ctx) error {
	if c.Query("hub.mode") == "subscribe" &&
		c.Query("hub.verify_token") == os.Getenv("FACEBOOK_WEBHOOK_VERIFY_TOKEN") {
		return c.SendString(c.Query("hub.challenge"))
	}
	return utils.FailCode(c, utils.CodeInvalidSignature, "webhook verification failed")
}

// HandleFacebookWebhook folds reaction/comment/share changes into the day's
// aggregated stats row for the matching ad.
func (s *SocialService) HandleFacebookWebhook(c *fiber.Ctx) error {
	var payload struct {
		Entry []struct {
			Changes []struct {
				Field string `json:"field"`
				Value struct {
					PostID string `json:"post_id"`
					Item   string `json:"item"` // reaction | comment | share
					Verb   string `json:"verb"` // add | remove
				} `json:"value"`
			} `json:"changes"`
		} `json:"entry"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid webhook payload")
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "feed" || change.Value.Verb != "add" {
				continue
			}

			var ad models.Ad
			err := s.DB.Where("facebook_post_id = ?", change.Value.PostID).First(&ad).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Printf("[Social] ad lookup failed: %v", err)
				}
				continue
			}

			var column string
			switch change.Value.Item {
			case "reaction":
				column = "reactions"
			case "comment":
				column = "comments"
			case "share":
				column = "shares"
			default:
				continue
			}

			if err := s.bumpEngagement(ad.ID, day, column); err != nil {
				log.Printf("[Social] engagement update failed for ad %s: %v", ad.ID, err)
			}
		}
	}

	return utils.OK(c, "webhook processed", nil)
}

func (s *SocialService) bumpEngagement(adID string, day time.Time, column string) error {
	stats := &models.AggregatedStats{
		ID:     uuid.NewString(),
		AdID:   adID,
		Day:    day,
		Source: models.SourceFacebook,
	}
	switch column {
	case "reactions":
		stats.Reactions = 1
	case "comments":
		stats.Comments = 1
	case "shares":
		stats.Shares = 1
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ad_id"}, {Name: "day"}, {Name: "source"}},
		DoUpdates: clause.Assignments(map[string]interface{}{column: gorm.Expr(column + " + 1")}),
	}).Create(stats).Error
}

// --- SEO variables (admin) ---

func (s *SocialService) GetSeoVariables(c *fiber.Ctx) error {
	var vars []models.SeoVariable
	if err := s.DB.Order("key ASC").Find(&vars).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch seo variables", err))
	}
	return utils.OK(c, "seo variables fetched", vars)
}

func (s *SocialService) UpsertSeoVariable(c *fiber.Ctx) error {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.Key == "" {
		return utils.FailCode(c, utils.CodeValidationError, "key is required")
	}

	seoVar := &models.SeoVariable{
		ID:    uuid.NewString(),
		Key:   req.Key,
		Value: req.Value,
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(seoVar).Error
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to save seo variable", err))
	}
	return utils.OK(c, "seo variable saved", seoVar)
}
