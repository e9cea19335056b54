// handlers/payments.go
package handlers

import (
	"ad-marketplace-system/middleware"
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, paymentService *services.PaymentService) {
	payments := app.Group("/api/payments")

	payments.Post("/checkout", middleware.Protected(), paymentService.CreateCheckout)
	payments.Get("/mine", middleware.Protected(), paymentService.GetMyPurchases)
	payments.Post("/refund/:id", middleware.Protected(), middleware.AdminOnly(), paymentService.RefundPurchase)

	// Gateway callback — authenticated by HMAC, not by user session.
	payments.Post("/webhook", paymentService.HandleWebhook)
}
