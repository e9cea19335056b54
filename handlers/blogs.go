// handlers/blogs.go
package handlers

import (
	"ad-marketplace-system/middleware"
	"ad-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBlogRoutes(app *fiber.App, blogService *services.BlogService) {
	blogs := app.Group("/api/blogs")

	// Optional auth: admins see unpublished drafts in the listing.
	blogs.Get("/", middleware.OptionalAuth(), blogService.ListBlogs)
	blogs.Get("/:slug", blogService.GetBlogBySlug)
	blogs.Post("/:id/like", blogService.LikeBlog)

	protected := middleware.Protected()
	admin := middleware.AdminOnly()
	blogs.Post("/", protected, admin, blogService.CreateBlog)
	blogs.Put("/:id", protected, admin, blogService.UpdateBlog)
	blogs.Delete("/:id", protected, admin, blogService.DeleteBlog)
}
