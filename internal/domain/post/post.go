package post

import (
	"errors"
	"time"

	"github.com/geocoder89/bloghub/internal/domain/user"
)

// DefaultImage is the sentinel used when a post has no cover image.
const DefaultImage = "no-photo.jpg"

// Categories is the closed set accepted at the boundary; anything else is a
// validation error.
var Categories = []string{
	"technology",
	"lifestyle",
	"business",
	"entertainment",
	"news",
	"other",
}

type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Content    string    `json:"content"`
	Excerpt    string    `json:"excerpt"`
	Author     user.Ref  `json:"author"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Image      string    `json:"image"`
	Likes      []string  `json:"likes"`
	CommentIDs []string  `json:"comments"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

var (
	ErrNotFound     = errors.New("post not found")
	ErrAlreadyLiked = errors.New("post already liked")
	ErrNotLiked     = errors.New("post not liked yet")
)

type CreatePostRequest struct {
	Title    string   `json:"title" binding:"required,max=100"`
	Content  string   `json:"content" binding:"required"`
	Excerpt  string   `json:"excerpt" binding:"required,max=500"`
	Category string   `json:"category" binding:"required,oneof=technology lifestyle business entertainment news other"`
	Tags     []string `json:"tags" binding:"omitempty,dive,min=1,max=40"`
	Image    string   `json:"image" binding:"omitempty,max=255"`
}

// partial update: nil fields are left untouched
type UpdatePostRequest struct {
	Title    *string   `json:"title" binding:"omitempty,max=100"`
	Content  *string   `json:"content" binding:"omitempty,min=1"`
	Excerpt  *string   `json:"excerpt" binding:"omitempty,max=500"`
	Category *string   `json:"category" binding:"omitempty,oneof=technology lifestyle business entertainment news other"`
	Tags     *[]string `json:"tags" binding:"omitempty,dive,min=1,max=40"`
	Image    *string   `json:"image" binding:"omitempty,max=255"`
}
