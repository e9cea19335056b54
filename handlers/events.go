// handlers/events.go
package handlers

import (
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

// Event ingestion stays public: impressions and clicks arrive from embedded
// ad tags on third-party pages, not from logged-in users.
func SetupEventRoutes(app *fiber.App, eventService *services.EventService) {
	app.Post("/api/events/impression", eventService.RecordImpression)
	app.Post("/api/events/click", eventService.RecordClick)
}
