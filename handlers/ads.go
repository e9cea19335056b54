// handlers/ads.go
package handlers

import (
	"ad-marketplace-system/middleware"
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdRoutes(app *fiber.App, adService *services.AdService, analyticsService *services.AnalyticsService) {
	ads := app.Group("/api/ads", middleware.Protected())

	// Advertiser routes
	ads.Post("/", adService.CreateAd)
	ads.Get("/mine", adService.GetMyAds)
	ads.Get("/:id", adService.GetAdByID)
	ads.Put("/:id", adService.UpdateAd)
	ads.Post("/:id/photo", adService.UploadAdPhoto)
	ads.Post("/:id/credit", adService.AssignCredit)
	ads.Patch("/:id/user-activate", adService.SetUserActivation(true))
	ads.Patch("/:id/user-deactivate", adService.SetUserActivation(false))
	ads.Delete("/:id", adService.DeleteAd)

	// Moderation + admin-side activation
	admin := middleware.AdminOnly()
	ads.Get("/", admin, adService.GetAllAds)
	ads.Patch("/:id/approve", admin, adService.ApproveAd)
	ads.Patch("/:id/reject", admin, adService.RejectAd)
	ads.Patch("/:id/activate", admin, adService.SetAdminActivation(true))
	ads.Patch("/:id/deactivate", admin, adService.SetAdminActivation(false))

	app.Get("/api/analytics/ads/:id", middleware.Protected(), analyticsService.GetAdAnalytics)
}
