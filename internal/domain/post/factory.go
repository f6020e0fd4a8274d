package post

import (
	"time"

	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/geocoder89/bloghub/internal/utils"
	"github.com/google/uuid"
)

// NewFromCreateRequest builds a Post owned by author. The slug is derived
// from the title once, at creation time; it is not guaranteed unique.
func NewFromCreateRequest(req CreatePostRequest, author user.Ref) Post {
	now := time.Now().UTC()

	image := req.Image
	if image == "" {
		image = DefaultImage
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	return Post{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Slug:       utils.Slugify(req.Title),
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		Author:     author,
		Category:   req.Category,
		Tags:       tags,
		Image:      image,
		Likes:      []string{},
		CommentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
