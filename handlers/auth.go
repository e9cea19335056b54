// handlers/auth.go
package handlers

import (
	"ad-marketplace-system/middleware"
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	auth := app.Group("/api/auth")

	auth.Post("/register", authService.Register)
	auth.Post("/login", authService.Login)
	auth.Get("/verify/:token", authService.VerifyEmail)

	// OAuth redirects + provider callbacks
	auth.Get("/google", authService.GoogleRedirect)
	auth.Get("/google/callback", authService.GoogleCallback)
	auth.Get("/facebook", authService.FacebookRedirect)
	auth.Get("/facebook/callback", authService.FacebookCallback)

	auth.Get("/me", middleware.Protected(), authService.Me)
}
