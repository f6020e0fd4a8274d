package comment

import (
	"errors"
	"time"

	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/google/uuid"
)

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    user.Ref  `json:"author"`
	PostID    string    `json:"post"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("comment not found")

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func NewFromCreateRequest(req CreateCommentRequest, postID string, author user.Ref) Comment {
	now := time.Now().UTC()

	return Comment{
		ID:        uuid.NewString(),
		Content:   req.Content,
		Author:    author,
		PostID:    postID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
