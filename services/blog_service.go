// services/blog_service.go
package services

import (
	"errors"
	"log"
	"time"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// BlogService is the one service backed by MongoDB instead of Postgres.
type BlogService struct {
	Collection *mongo.Collection
}

func NewBlogService(db *mongo.Database) *BlogService {
	return &BlogService{Collection: db.Collection("blogs")}
}

// buildBlogFilter translates query params into a Mongo filter document.
// Non-admin readers only ever see published posts.
func buildBlogFilter(search, tag string, publishedOnly bool) bson.M {
	filter := bson.M{}
	if publishedOnly {
		filter["published"] = true
	}
	if search != "" {
		pattern := bson.M{"$regex": search, "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
		}
	}
	if tag != "" {
		filter["tags"] = tag
	}
	return filter
}

// CreateBlog creates a post (admin only); the slug derives from the title.
func (s *BlogService) CreateBlog(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		CoverURL  string   `json:"cover_url"`
		Tags      []string `json:"tags"`
		Published bool     `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}
	if req.Title == "" {
		return utils.FailCode(c, utils.CodeValidationError, "title is required")
	}

	now := time.Now().UTC()
	blog := models.Blog{
		ID:        bson.NewObjectID(),
		Title:     req.Title,
		Slug:      slug.Make(req.Title),
		Content:   req.Content,
		CoverURL:  req.CoverURL,
		AuthorID:  userID,
		Tags:      req.Tags,
		Published: req.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if blog.Tags == nil {
		blog.Tags = []string{}
	}

	if _, err := s.Collection.InsertOne(c.Context(), blog); err != nil {
		log.Printf("[Blogs] insert failed: %v", err)
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to create blog", err))
	}
	return utils.Created(c, "blog created", blog)
}

// ListBlogs returns search/filter/paginated posts with a total count.
func (s *BlogService) ListBlogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 50 {
		limit = 10
	}

	role, _ := c.Locals("user_role").(string)
	filter := buildBlogFilter(c.Query("search"), c.Query("tag"), role != models.RoleAdmin)

	total, err := s.Collection.CountDocuments(c.Context(), filter)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count blogs", err))
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.Collection.Find(c.Context(), filter, opts)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch blogs", err))
	}
	defer cursor.Close(c.Context())

	blogs := []models.Blog{}
	if err := cursor.All(c.Context(), &blogs); err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to decode blogs", err))
	}

	return utils.OK(c, "blogs fetched", fiber.Map{
		"blogs": blogs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetBlogBySlug fetches one published post.
func (s *BlogService) GetBlogBySlug(c *fiber.Ctx) error {
	var blog models.Blog
	err := s.Collection.FindOne(c.Context(), bson.M{"slug": c.Params("slug"), "published": true}).Decode(&blog)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.FailCode(c, utils.CodeBlogNotFound, "blog not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch blog", err))
	}
	return utils.OK(c, "blog fetched", blog)
}

// UpdateBlog edits a post (admin only). A title change regenerates the slug.
func (s *BlogService) UpdateBlog(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid blog id")
	}

	var req struct {
		Title     *string   `json:"title"`
		Content   *string   `json:"content"`
		CoverURL  *string   `json:"cover_url"`
		Tags      *[]string `json:"tags"`
		Published *bool     `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid request body")
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Title != nil {
		if *req.Title == "" {
			return utils.FailCode(c, utils.CodeValidationError, "title cannot be empty")
		}
		set["title"] = *req.Title
		set["slug"] = slug.Make(*req.Title)
	}
	if req.Content != nil {
		set["content"] = *req.Content
	}
	if req.CoverURL != nil {
		set["coverUrl"] = *req.CoverURL
	}
	if req.Tags != nil {
		set["tags"] = *req.Tags
	}
	if req.Published != nil {
		set["published"] = *req.Published
	}

	result := s.Collection.FindOneAndUpdate(
		c.Context(),
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var blog models.Blog
	if err := result.Decode(&blog); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return utils.FailCode(c, utils.CodeBlogNotFound, "blog not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to update blog", err))
	}
	return utils.OK(c, "blog updated", blog)
}

// LikeBlog increments the like counter.
func (s *BlogService) LikeBlog(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid blog id")
	}

	result, err := s.Collection.UpdateOne(
		c.Context(),
		bson.M{"_id": id, "published": true},
		bson.M{"$inc": bson.M{"likes": 1}},
	)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to like blog", err))
	}
	if result.MatchedCount == 0 {
		return utils.FailCode(c, utils.CodeBlogNotFound, "blog not found")
	}
	return utils.OK(c, "blog liked", fiber.Map{"id": c.Params("id")})
}

// DeleteBlog removes a post (admin only).
func (s *BlogService) DeleteBlog(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.FailCode(c, utils.CodeValidationError, "invalid blog id")
	}

	result, err := s.Collection.DeleteOne(c.Context(), bson.M{"_id": id})
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to delete blog", err))
	}
	if result.DeletedCount == 0 {
		return utils.FailCode(c, utils.CodeBlogNotFound, "blog not found")
	}
	return utils.OK(c, "blog deleted", fiber.Map{"id": c.Params("id")})
}
