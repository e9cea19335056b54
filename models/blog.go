// models/blog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Blog lives in MongoDB, not Postgres. Field names follow the collection's
// bson schema.
type Blog struct {
	ID        bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Title     string        `json:"title" bson:"title"`
	Slug      string        `json:"slug" bson:"slug"`
	Content   string        `json:"content" bson:"content"`
	CoverURL  string        `json:"cover_url,omitempty" bson:"coverUrl,omitempty"`
	AuthorID  string        `json:"author_id" bson:"authorId"`
	Tags      []string      `json:"tags" bson:"tags"`
	Likes     int64         `json:"likes" bson:"likes"`
	Published bool          `json:"published" bson:"published"`
	CreatedAt time.Time     `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updatedAt"`
}
