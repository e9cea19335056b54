package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestBuildBlogFilter(t *testing.T) {
	t.Run("published only", func(t *testing.T) {
		filter := buildBlogFilter("", "", true)
		assert.Equal(t, bson.M{"published": true}, filter)
	})

	t.Run("admins see drafts", func(t *testing.T) {
		filter := buildBlogFilter("", "", false)
		assert.Empty(t, filter)
	})

	t.Run("search matches title or content", func(t *testing.T) {
		filter := buildBlogFilter("launch", "", true)
		pattern := bson.M{"$regex": "launch", "$options": "i"}
		assert.Equal(t, bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
		}, filter["$or"])
		assert.Equal(t, true, filter["published"])
	})

	t.Run("tag filter", func(t *testing.T) {
		filter := buildBlogFilter("", "news", false)
		assert.Equal(t, bson.M{"tags": "news"}, filter)
	})

	t.Run("all filters combine", func(t *testing.T) {
		filter := buildBlogFilter("launch", "news", true)
		assert.Len(t, filter, 3)
	})
}
