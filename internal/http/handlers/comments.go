package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/bloghub/internal/authz"
	"github.com/geocoder89/bloghub/internal/domain/comment"
	"github.com/geocoder89/bloghub/internal/domain/post"
	"github.com/geocoder89/bloghub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type CommentsStore interface {
	ListByPost(ctx context.Context, postID string) ([]comment.Comment, error)
	GetByID(ctx context.Context, id string) (comment.Comment, error)
	Create(ctx context.Context, c comment.Comment) error
	Update(ctx context.Context, id string, req comment.UpdateCommentRequest) (comment.Comment, error)
	Delete(ctx context.Context, id string) error
}

type PostsReader interface {
	GetByID(ctx context.Context, id string) (post.Post, error)
}

type CommentsHandler struct {
	comments CommentsStore
	posts    PostsReader
	log      *slog.Logger
}

func NewCommentsHandler(comments CommentsStore, posts PostsReader, log *slog.Logger) *CommentsHandler {
	return &CommentsHandler{
		comments: comments,
		posts:    posts,
		log:      log,
	}
}

const commentNotFoundMessage = "Comment not found"

// ListForPost returns a post's comments oldest first.
func (h *CommentsHandler) ListForPost(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	postID := ctx.Param("postId")

	if _, err := h.posts.GetByID(rctx, postID); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, postNotFoundMessage)
			return
		}

		h.log.ErrorContext(rctx, "get post", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not list comments")
		return
	}

	comments, err := h.comments.ListByPost(rctx, postID)

	if err != nil {
		h.log.ErrorContext(rctx, "list comments", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not list comments")
		return
	}

	RespondList(ctx, len(comments), nil, comments)
}

// AddComment creates a comment and registers it on the parent post.
func (h *CommentsHandler) AddComment(ctx *gin.Context) {
	author, ok := middlewares.UserRefFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return
	}

	var req comment.CreateCommentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	c := comment.NewFromCreateRequest(req, ctx.Param("postId"), author)

	if err := h.comments.Create(ctx.Request.Context(), c); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, postNotFoundMessage)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "create comment", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not add comment")
		return
	}

	RespondData(ctx, http.StatusCreated, c)
}

func (h *CommentsHandler) UpdateComment(ctx *gin.Context) {
	c, ok := h.loadForMutation(ctx)

	if !ok {
		return
	}

	var req comment.UpdateCommentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.comments.Update(ctx.Request.Context(), c.ID, req)

	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, commentNotFoundMessage)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "update comment", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not update comment")
		return
	}

	RespondData(ctx, http.StatusOK, updated)
}

// DeleteComment removes the comment and its back-reference on the post.
func (h *CommentsHandler) DeleteComment(ctx *gin.Context) {
	c, ok := h.loadForMutation(ctx)

	if !ok {
		return
	}

	if err := h.comments.Delete(ctx.Request.Context(), c.ID); err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, commentNotFoundMessage)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "delete comment", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not delete comment")
		return
	}

	RespondData(ctx, http.StatusOK, gin.H{})
}

func (h *CommentsHandler) loadForMutation(ctx *gin.Context) (comment.Comment, bool) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return comment.Comment{}, false
	}

	c, err := h.comments.GetByID(ctx.Request.Context(), ctx.Param("id"))

	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, commentNotFoundMessage)
			return comment.Comment{}, false
		}

		h.log.ErrorContext(ctx.Request.Context(), "get comment", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not load comment")
		return comment.Comment{}, false
	}

	if !authz.CanMutate(identity, c.Author.ID) {
		RespondForbidden(ctx, "Not allowed to modify this comment")
		return comment.Comment{}, false
	}

	return c, true
}
