// services/ad_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdService struct {
	DB     *gorm.DB
	Mailer *ResendClient // nil when email is disabled
}

func NewAdService(db *gorm.DB, mailer *ResendClient) *AdService {
	return &AdService{DB: db, Mailer: mailer}
}

// refundCurrency is the currency the ratio table is consulted in for
// deletion refunds.
const refundCurrency = "sar"

// CreateAd creates a new ad in pending status owned by the caller.
func (s *AdService) CreateAd(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		TitleEn           string `json:"title_en"`
		TitleAr           string `json:"title_ar"`
		DescriptionEn     string `json:"description_en"`
		DescriptionAr     string `json:"description_ar"`
		TargetLink        string `json:"target_link"`
		BudgetType        string `json:"budget_type"`
		HasPromoted       bool   `json:"has_promoted"`
		ImpressionsCredit int64  `json:"impressions_credit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.TitleEn == "" {
		return utils.FailCode(c, utils.CodeValidationError, "title_en is required")
	}
	if req.BudgetType == "" {
		req.BudgetType = models.BudgetTypeImpressions
	}
	if req.BudgetType != models.BudgetTypeImpressions && req.BudgetType != models.BudgetTypeOpen {
		return utils.FailCode(c, utils.CodeValidationError, "invalid budget_type")
	}
	if req.ImpressionsCredit < 0 {
		return utils.FailCode(c, utils.CodeValidationError, "impressions_credit cannot be negative")
	}

	ad := &models.Ad{
		ID:                uuid.NewString(),
		UserID:            userID,
		TitleEn:           req.TitleEn,
		TitleAr:           req.TitleAr,
		DescriptionEn:     req.DescriptionEn,
		DescriptionAr:     req.DescriptionAr,
		TargetLink:        req.TargetLink,
		Status:            models.AdStatusPending,
		BudgetType:        req.BudgetType,
		HasPromoted:       req.HasPromoted,
		ImpressionsCredit: req.ImpressionsCredit,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ad).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Update("ads_count", gorm.Expr("ads_count + 1")).Error
	})
	if err != nil {
		log.Printf("[Ads] create failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to create ad", err))
	}

	return utils.Created(c, "ad created", ad)
}

// GetMyAds lists the caller's ads.
func (s *AdService) GetMyAds(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var ads []models.Ad
	if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&ads).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ads", err))
	}
	return utils.OK(c, "ads fetched", ads)
}

// GetAllAds is the admin listing with optional status filter and pagination.
func (s *AdService) GetAllAds(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.DB.Model(&models.Ad{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count ads", err))
	}

	var ads []models.Ad
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&ads).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ads", err))
	}

	return utils.OK(c, "ads fetched", fiber.Map{
		"ads":   ads,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetAdByID returns one ad. Owners see their own ads; admins see any.
func (s *AdService) GetAdByID(c *fiber.Ctx) error {
	ad, appErr := s.loadAdForCaller(c)
	if appErr != nil {
		return utils.Fail(c, appErr)
	}
	return utils.OK(c, "ad fetched", ad)
}

// UpdateAd lets the owner edit content. Any edit force-resets the ad to
// pending and clears the rejection reason, so rejected ads re-enter review.
func (s *AdService) UpdateAd(c *fiber.Ctx) error {
	ad, appErr := s.loadAdForCaller(c)
	if appErr != nil {
		return utils.Fail(c, appErr)
	}

	var req struct {
		TitleEn       *string `json:"title_en"`
		TitleAr       *string `json:"title_ar"`
		DescriptionEn *string `json:"description_en"`
		DescriptionAr *string `json:"description_ar"`
		TargetLink    *string `json:"target_link"`
		HasPromoted   *bool   `json:"has_promoted"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}

	if req.TitleEn != nil {
		if *req.TitleEn == "" {
			return utils.FailCode(c, utils.CodeValidationError, "title_en cannot be empty")
		}
		ad.TitleEn = *req.TitleEn
	}
	if req.TitleAr != nil {
		ad.TitleAr = *req.TitleAr
	}
	if req.DescriptionEn != nil {
		ad.DescriptionEn = *req.DescriptionEn
	}
	if req.DescriptionAr != nil {
		ad.DescriptionAr = *req.DescriptionAr
	}
	if req.TargetLink != nil {
		ad.TargetLink = *req.TargetLink
	}
	if req.HasPromoted != nil {
		ad.HasPromoted = *req.HasPromoted
	}

	// Edits always go back through moderation.
	ad.Status = models.AdStatusPending
	ad.RejectionReason = ""
	ad.Active = false

	if err := s.DB.Save(ad).Error; err != nil {
		log.Printf("[Ads] update failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to update ad", err))
	}
	return utils.OK(c, "ad updated, pending review", ad)
}

// UploadAdPhoto stores the ad photo in object storage and saves the URL.
func (s *AdService) UploadAdPhoto(c *fiber.Ctx) error {
	ad, appErr := s.loadAdForCaller(c)
	if appErr != nil {
		return utils.Fail(c, appErr)
	}

	photo, err := c.FormFile("photo")
	if err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "photo is required")
	}
	if photo.Size > 10*1024*1024 {
		return utils.FailCode(c, utils.CodeValidationError, "photo too large (max 10MB)")
	}

	ext := filepath.Ext(photo.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "ads/" + uuid.NewString() + ext
	url, err := utils.UploadFileToStorage(photo, key)
	if err != nil {
		log.Printf("[Ads] photo upload failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeUploadError, "failed to upload photo", err))
	}

	if ad.PhotoURL != "" {
		if err := utils.DeleteFromStorage(utils.StorageKeyFromURL(ad.PhotoURL)); err != nil {
			log.Printf("[Ads] old photo cleanup failed: %v", err)
		}
	}

	ad.PhotoURL = url
	if err := s.DB.Save(ad).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to save photo url", err))
	}
	return utils.OK(c, "photo uploaded", fiber.Map{"photo_url": url})
}

// --- Moderation (admin) ---

// ApproveAd flips a pending/rejected ad to approved, clears the rejection
// reason and stamps the social page link fields.
func (s *AdService) ApproveAd(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)

	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", c.Params("id")).Error; err != nil {
		return s.adLookupError(c, err)
	}
	if ad.Status == models.AdStatusApproved {
		return utils.FailCode(c, utils.CodeValidationError, "ad is already approved")
	}

	ad.Status = models.AdStatusApproved
	ad.RejectionReason = ""

	// Stamp social-link fields from the configured Facebook page, if any.
	var page models.SocialMediaPage
	if err := s.DB.Where("platform = ?", models.PlatformFacebook).First(&page).Error; err == nil {
		ad.FacebookPageURL = page.PageURL
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&ad).Error; err != nil {
			return err
		}
		return s.writeAudit(tx, adminID, "ad.approve", ad.ID, "")
	})
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to approve ad", err))
	}

	s.notifyStatusChange(&ad)
	return utils.OK(c, "ad approved", ad)
}

// RejectAd flips the ad to rejected with an optional reason.
func (s *AdService) RejectAd(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional for rejections without a reason.
	_ = c.BodyParser(&req)

	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", c.Params("id")).Error; err != nil {
		return s.adLookupError(c, err)
	}
	if ad.Status == models.AdStatusRejected {
		return utils.FailCode(c, utils.CodeValidationError, "ad is already rejected")
	}

	ad.Status = models.AdStatusRejected
	ad.RejectionReason = req.Reason
	ad.Active = false
	ad.UserActivation = false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&ad).Error; err != nil {
			return err
		}
		return s.writeAudit(tx, adminID, "ad.reject", ad.ID, req.Reason)
	})
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to reject ad", err))
	}

	s.notifyStatusChange(&ad)
	return utils.OK(c, "ad rejected", ad)
}

// notifyStatusChange emails the ad owner after a moderation decision.
// Best-effort; the decision stands even if the mail bounces.
func (s *AdService) notifyStatusChange(ad *models.Ad) {
	if s.Mailer == nil {
		return
	}
	var owner models.User
	if err := s.DB.First(&owner, "id = ?", ad.UserID).Error; err != nil {
		return
	}
	if err := s.Mailer.SendAdStatusEmail(owner.Email, ad.TitleEn, ad.Status, ad.RejectionReason); err != nil {
		log.Printf("[Ads] status email failed for %s: %v", ad.ID, err)
	}
}

// --- Activation ---
// Admin and owner activation are two independent booleans; both must be true
// for traffic to flow.

// SetAdminActivation handles PATCH /ads/:id/activate and /deactivate.
func (s *AdService) SetAdminActivation(target bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID := c.Locals("user_id").(string)

		var ad models.Ad
		if err := s.DB.First(&ad, "id = ?", c.Params("id")).Error; err != nil {
			return s.adLookupError(c, err)
		}
		if appErr := validateActivation(&ad, ad.Active, target); appErr != nil {
			return utils.Fail(c, appErr)
		}

		ad.Active = target
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&ad).Error; err != nil {
				return err
			}
			return s.writeAudit(tx, adminID, fmt.Sprintf("ad.admin_active=%t", target), ad.ID, "")
		})
		if err != nil {
			return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to update activation", err))
		}
		return utils.OK(c, "activation updated", ad)
	}
}

// SetUserActivation handles the owner-side flag.
func (s *AdService) SetUserActivation(target bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ad, appErr := s.loadAdForCaller(c)
		if appErr != nil {
			return utils.Fail(c, appErr)
		}
		if appErr := validateActivation(ad, ad.UserActivation, target); appErr != nil {
			return utils.Fail(c, appErr)
		}

		ad.UserActivation = target
		if err := s.DB.Save(ad).Error; err != nil {
			return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to update activation", err))
		}
		return utils.OK(c, "activation updated", ad)
	}
}

// validateActivation enforces the transition rules shared by both flags:
// approval is required before any activation, impression-budget ads need
// credit to activate, and no-op toggles are rejected. Deactivation of an
// already-inactive flag is likewise rejected; the opposing flag is never
// touched.
func validateActivation(ad *models.Ad, current, target bool) *utils.AppError {
	if current == target {
		if target {
			return utils.NewError(utils.CodeValidationError, "ad is already active")
		}
		return utils.NewError(utils.CodeValidationError, "ad is already inactive")
	}
	if target {
		if ad.Status != models.AdStatusApproved {
			return utils.NewError(utils.CodeValidationError, "ad must be approved before activation")
		}
		if ad.BudgetType == models.BudgetTypeImpressions && ad.ImpressionsCredit <= 0 {
			return utils.NewError(utils.CodeValidationError, "ad has no impression credit")
		}
	}
	return nil
}

// --- Credit accounting ---

// AssignCredit atomically debits the caller's balance and credits the ad's
// impression budget.
func (s *AdService) AssignCredit(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.Amount <= 0 {
		return utils.FailCode(c, utils.CodeValidationError, "amount must be positive")
	}

	ad, appErr := s.loadAdForCaller(c)
	if appErr != nil {
		return utils.Fail(c, appErr)
	}

	var updated models.Ad
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		if user.Balance < float64(req.Amount) {
			return utils.NewError(utils.CodeInsufficientBalance, "balance is lower than requested credit")
		}

		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"balance":     gorm.Expr("balance - ?", req.Amount),
			"total_spend": gorm.Expr("total_spend + ?", req.Amount),
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Ad{}).Where("id = ?", ad.ID).
			Update("impressions_credit", gorm.Expr("impressions_credit + ?", req.Amount)).Error; err != nil {
			return err
		}
		if err := s.writeAudit(tx, userID, "ad.assign_credit", ad.ID, fmt.Sprintf("amount=%d", req.Amount)); err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", ad.ID).Error
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return utils.Fail(c, appErr)
		}
		log.Printf("[Credits] assign failed for ad %s: %v", ad.ID, err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "credit assignment failed", err))
	}

	return utils.OK(c, "credit assigned", updated)
}

// DeleteAd refunds the unused impression credit at the current ratio for the
// ad's promotion tier and hard-deletes the row plus its event log.
func (s *AdService) DeleteAd(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)

	ad, appErr := s.loadAdForCaller(c)
	if appErr != nil {
		return utils.Fail(c, appErr)
	}

	var refund int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Re-read the ad under a row lock so the refund sees credit assigned
		// by any concurrently committed transaction.
		var locked models.Ad
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", ad.ID).Error; err != nil {
			return err
		}

		ratio, err := LatestRatio(tx, refundCurrency, locked.HasPromoted)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewError(utils.CodeValidationError,
					"no impression ratio configured for this promotion tier")
			}
			return err
		}

		// floor(remaining / impressionsPerUnit), never negative.
		if locked.ImpressionsCredit > 0 {
			refund = locked.ImpressionsCredit / ratio.ImpressionsPerUnit
		}
		if refund > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", locked.UserID).
				Update("balance", gorm.Expr("balance + ?", refund)).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("ad_id = ?", locked.ID).Delete(&models.ImpressionEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ad_id = ?", locked.ID).Delete(&models.ClickEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ? AND ads_count > 0", locked.UserID).
			Update("ads_count", gorm.Expr("ads_count - 1")).Error; err != nil {
			return err
		}
		if err := s.writeAudit(tx, callerID, "ad.delete", locked.ID, fmt.Sprintf("refund=%d", refund)); err != nil {
			return err
		}
		return tx.Delete(&models.Ad{}, "id = ?", locked.ID).Error
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return utils.Fail(c, appErr)
		}
		log.Printf("[Ads] delete failed for %s: %v", ad.ID, err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to delete ad", err))
	}

	if ad.PhotoURL != "" {
		if err := utils.DeleteFromStorage(utils.StorageKeyFromURL(ad.PhotoURL)); err != nil {
			log.Printf("[Ads] photo cleanup failed for %s: %v", ad.ID, err)
		}
	}

	return utils.OK(c, "ad deleted", fiber.Map{
		"id":     ad.ID,
		"refund": refund,
	})
}

// --- helpers ---

// loadAdForCaller fetches the ad from the :id param and checks ownership
// (admins bypass the ownership check).
func (s *AdService) loadAdForCaller(c *fiber.Ctx) (*models.Ad, *utils.AppError) {
	userID := c.Locals("user_id").(string)
	role, _ := c.Locals("user_role").(string)

	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.CodeAdNotFound, "ad not found")
		}
		return nil, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ad", err)
	}
	if ad.UserID != userID && role != models.RoleAdmin {
		return nil, utils.NewError(utils.CodeForbidden, "not the owner of this ad")
	}
	return &ad, nil
}

func (s *AdService) adLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.FailCode(c, utils.CodeAdNotFound, "ad not found")
	}
	return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ad", err))
}

func (s *AdService) writeAudit(tx *gorm.DB, actorID, action, targetID, detail string) error {
	return tx.Create(&models.AuditLog{
		ID:       uuid.NewString(),
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Detail:   detail,
	}).Error
}

// financialSummary derives spend figures from the event log and the current
// ratio row. Spent is recomputed from events rather than read from the ledger
// field, so the two views can diverge (documented behavior).
func financialSummary(impressionsCredit, totalImpressions, impressionsPerUnit int64) (costPerImpression, spent, remaining decimal.Decimal) {
	if impressionsPerUnit <= 0 {
		return decimal.Zero, decimal.Zero, decimal.NewFromInt(impressionsCredit)
	}
	costPerImpression = decimal.NewFromInt(1).DivRound(decimal.NewFromInt(impressionsPerUnit), 8)
	spent = decimal.NewFromInt(totalImpressions).Mul(costPerImpression)
	remaining = decimal.NewFromInt(impressionsCredit).Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return costPerImpression, spent, remaining
}
