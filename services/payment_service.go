// services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutSession holds the metadata created at session-start time. The
// gateway webhook does not reliably echo it back, so it is cached here keyed
// by gateway order id. The cache is process-local: a restart between checkout
// creation and webhook delivery loses it, and the webhook then falls back to
// whatever the gateway payload contains.
type CheckoutSession struct {
	OrderID       int64
	PurchaseID    string
	UserID        string
	AmountCents   int64
	Impressions   int64
	PaymentStatus string
}

type sessionCache struct {
	mu       sync.RWMutex
	sessions map[int64]*CheckoutSession
}

func newSessionCache() *sessionCache {
	return &sessionCache{sessions: make(map[int64]*CheckoutSession)}
}

func (c *sessionCache) put(s *CheckoutSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.OrderID] = s
}

func (c *sessionCache) get(orderID int64) (*CheckoutSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[orderID]
	return s, ok
}

func (c *sessionCache) setStatus(orderID int64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[orderID]; ok {
		s.PaymentStatus = status
	}
}

// WebhookEvent is what registered handlers receive after signature
// verification and session lookup.
type WebhookEvent struct {
	Type        string
	Transaction *TransactionCallback
	Session     *CheckoutSession // nil when the cache was lost
}

type webhookHandler func(tx *gorm.DB, event *WebhookEvent) error

type PaymentService struct {
	DB       *gorm.DB
	Gateway  *PaymobClient
	sessions *sessionCache
	handlers map[string]webhookHandler
}

func NewPaymentService(db *gorm.DB, gateway *PaymobClient) *PaymentService {
	s := &PaymentService{
		DB:       db,
		Gateway:  gateway,
		sessions: newSessionCache(),
		handlers: make(map[string]webhookHandler),
	}
	s.handlers["checkout.session.completed"] = s.handleCheckoutCompleted
	s.handlers["payment_intent.payment_failed"] = s.handlePaymentFailed
	return s
}

// impressionsForAmount converts a purchase amount into impression units using
// the current non-promoted ratio for the purchase currency.
func (s *PaymentService) impressionsForAmount(amountCents int64, currency string) int64 {
	ratio, err := LatestRatio(s.DB, currency, false)
	if err != nil {
		return 0
	}
	return amountCents / 100 * ratio.ImpressionsPerUnit
}

// CreateCheckout records a pending Purchase, opens a gateway checkout session
// and caches the session metadata for the webhook.
func (s *PaymentService) CreateCheckout(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.AmountCents <= 0 {
		return utils.FailCode(c, utils.CodeValidationError, "amount_cents must be positive")
	}
	if req.Currency == "" {
		req.Currency = refundCurrency
	}

	impressions := s.impressionsForAmount(req.AmountCents, req.Currency)

	purchase := &models.Purchase{
		ID:          uuid.NewString(),
		UserID:      userID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Impressions: impressions,
		Status:      models.PurchaseStatusPending,
	}
	if err := s.DB.Create(purchase).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to create purchase", err))
	}

	orderID, checkoutURL, err := s.Gateway.CreateCheckout(req.AmountCents, req.Currency, purchase.ID)
	if err != nil {
		log.Printf("[Payments] checkout creation failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodePaymentError, "gateway checkout failed", err))
	}

	purchase.GatewayOrderID = fmt.Sprintf("%d", orderID)
	if err := s.DB.Save(purchase).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to save purchase", err))
	}

	s.sessions.put(&CheckoutSession{
		OrderID:       orderID,
		PurchaseID:    purchase.ID,
		UserID:        userID,
		AmountCents:   req.AmountCents,
		Impressions:   impressions,
		PaymentStatus: "open",
	})

	return utils.Created(c, "checkout created", fiber.Map{
		"purchase_id":  purchase.ID,
		"order_id":     orderID,
		"checkout_url": checkoutURL,
	})
}

// HandleWebhook verifies the gateway signature, recovers the cached session
// and dispatches to the handler registered for the synthesized event type.
// Signature mismatches abort before any handler runs.
func (s *PaymentService) HandleWebhook(c *fiber.Ctx) error {
	var payload struct {
		Obj TransactionCallback `json:"obj"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid webhook payload")
	}

	provided := c.Query("hmac")
	if !s.Gateway.VerifyHMAC(&payload.Obj, provided) {
		log.Printf("[Payments] webhook HMAC mismatch for order %d", payload.Obj.Order.ID)
		return utils.FailCode(c, utils.CodeInvalidSignature, "webhook signature verification failed")
	}

	eventType := payload.Obj.EventType()
	session, ok := s.sessions.get(payload.Obj.Order.ID)
	if !ok {
		// Cache lost (restart or different instance); fall back to the
		// gateway's own payload.
		log.Printf("[Payments] no cached session for order %d, using payload fallback", payload.Obj.Order.ID)
		session = nil
	} else {
		s.sessions.setStatus(payload.Obj.Order.ID, eventType)
	}

	handler, ok := s.handlers[eventType]
	if !ok {
		return utils.OK(c, "event ignored", fiber.Map{"type": eventType})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return handler(tx, &WebhookEvent{
			Type:        eventType,
			Transaction: &payload.Obj,
			Session:     session,
		})
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return utils.Fail(c, appErr)
		}
		log.Printf("[Payments] webhook handler failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "webhook processing failed", err))
	}

	return utils.OK(c, "webhook processed", fiber.Map{"type": eventType})
}

// handleCheckoutCompleted marks the purchase paid and credits the buyer.
func (s *PaymentService) handleCheckoutCompleted(tx *gorm.DB, event *WebhookEvent) error {
	purchase, err := s.resolvePurchase(tx, event)
	if err != nil {
		return err
	}
	if purchase.Status == models.PurchaseStatusPaid {
		// Gateway retries deliver the same event more than once.
		return nil
	}

	purchase.Status = models.PurchaseStatusPaid
	purchase.GatewayPaymentID = fmt.Sprintf("%d", event.Transaction.ID)
	if err := tx.Save(purchase).Error; err != nil {
		return err
	}

	// Balance is credited in whole currency units.
	amount := purchase.AmountCents / 100
	return tx.Model(&models.User{}).Where("id = ?", purchase.UserID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

// handlePaymentFailed marks the purchase failed.
func (s *PaymentService) handlePaymentFailed(tx *gorm.DB, event *WebhookEvent) error {
	purchase, err := s.resolvePurchase(tx, event)
	if err != nil {
		return err
	}
	if purchase.Status != models.PurchaseStatusPending {
		return nil
	}
	purchase.Status = models.PurchaseStatusFailed
	purchase.GatewayPaymentID = fmt.Sprintf("%d", event.Transaction.ID)
	return tx.Save(purchase).Error
}

// resolvePurchase prefers the cached session's purchase id and falls back to
// the gateway order id echoed in the payload.
func (s *PaymentService) resolvePurchase(tx *gorm.DB, event *WebhookEvent) (*models.Purchase, error) {
	var purchase models.Purchase
	if event.Session != nil {
		if err := tx.First(&purchase, "id = ?", event.Session.PurchaseID).Error; err == nil {
			return &purchase, nil
		}
	}
	err := tx.Where("gateway_order_id = ?", fmt.Sprintf("%d", event.Transaction.Order.ID)).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.CodePurchaseNotFound, "no purchase matches this webhook")
		}
		return nil, err
	}
	return &purchase, nil
}

// RefundPurchase issues a gateway refund for a paid purchase (admin only) and
// debits the credited balance back.
func (s *PaymentService) RefundPurchase(c *fiber.Ctx) error {
	var purchase models.Purchase
	if err := s.DB.First(&purchase, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodePurchaseNotFound, "purchase not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch purchase", err))
	}
	if purchase.Status != models.PurchaseStatusPaid {
		return utils.FailCode(c, utils.CodeValidationError, "only paid purchases can be refunded")
	}

	if err := s.Gateway.Refund(purchase.GatewayPaymentID, purchase.AmountCents); err != nil {
		log.Printf("[Payments] gateway refund failed for %s: %v", purchase.ID, err)
		return utils.Fail(c, utils.WrapError(utils.CodePaymentError, "gateway refund failed", err))
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&purchase).Update("status", models.PurchaseStatusRefunded).Error; err != nil {
			return err
		}
		amount := purchase.AmountCents / 100
		return tx.Model(&models.User{}).Where("id = ?", purchase.UserID).
			Update("balance", gorm.Expr("balance - ?", amount)).Error
	})
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to record refund", err))
	}

	return utils.OK(c, "purchase refunded", purchase)
}

// GetMyPurchases lists the caller's purchase history.
func (s *PaymentService) GetMyPurchases(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var purchases []models.Purchase
	if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error; err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch purchases", err))
	}
	return utils.OK(c, "purchases fetched", purchases)
}
