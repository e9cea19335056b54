// handlers/social.go
package handlers

import (
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

// The Graph API calls these directly; GET is the subscription handshake and
// POST delivers feed changes.
func SetupSocialWebhookRoutes(app *fiber.App, socialService *services.SocialService, creditService *services.CreditService) {
	app.Get("/api/social/facebook/webhook", socialService.VerifyFacebookWebhook)
	app.Post("/api/social/facebook/webhook", socialService.HandleFacebookWebhook)

	// Public pricing lookup used by the checkout page.
	app.Get("/api/credits/ratio/current", creditService.GetCurrentRatio)
}
