// handlers/admin.go
package handlers

import (
	"ad-marketplace-system/middleware"
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes wires user management, pricing ratios, SEO variables and
// the social page registry.
func SetupAdminRoutes(
	app *fiber.App,
	userService *services.UserService,
	creditService *services.CreditService,
	socialService *services.SocialService,
) {
	users := app.Group("/api/users", middleware.Protected(), middleware.AdminOnly())
	users.Get("/", userService.GetAllUsers)
	users.Patch("/:id/promote", userService.PromoteUser)
	users.Delete("/:id", userService.DeleteUser)

	credits := app.Group("/api/credits", middleware.Protected(), middleware.AdminOnly())
	credits.Get("/ratio", creditService.GetRatios)
	credits.Post("/ratio", creditService.UpsertRatio)
	credits.Put("/ratio", creditService.UpsertRatio)

	seo := app.Group("/api/seo", middleware.Protected(), middleware.AdminOnly())
	seo.Get("/", socialService.GetSeoVariables)
	seo.Put("/", socialService.UpsertSeoVariable)

	pages := app.Group("/api/social/pages", middleware.Protected(), middleware.AdminOnly())
	pages.Get("/", socialService.GetPages)
	pages.Post("/", socialService.UpsertPage)
}
