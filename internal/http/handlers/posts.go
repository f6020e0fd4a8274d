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
	"github.com/geocoder89/bloghub/internal/query"
	"github.com/gin-gonic/gin"
)

type PostsStore interface {
	Create(ctx context.Context, p post.Post) error
	List(ctx context.Context, f query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error)
	Count(ctx context.Context, f query.Filter) (int, error)
	GetByID(ctx context.Context, id string) (post.Post, error)
	Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, postID, userID string) (post.Post, error)
	Unlike(ctx context.Context, postID, userID string) (post.Post, error)
}

type CommentsReader interface {
	ListByPost(ctx context.Context, postID string) ([]comment.Comment, error)
}

type PostsHandler struct {
	posts    PostsStore
	comments CommentsReader
	log      *slog.Logger
}

func NewPostsHandler(posts PostsStore, comments CommentsReader, log *slog.Logger) *PostsHandler {
	return &PostsHandler{
		posts:    posts,
		comments: comments,
		log:      log,
	}
}

const postNotFoundMessage = "Post not found"

// ListPosts handles the filter/search/sort/page query surface.
func (h *PostsHandler) ListPosts(ctx *gin.Context) {
	params, err := query.ParseListParams(ctx.Request.URL.Query())

	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	rctx := ctx.Request.Context()

	total, err := h.posts.Count(rctx, params.Filter)

	if err != nil {
		h.log.ErrorContext(rctx, "count posts", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not list posts")
		return
	}

	win := query.Paginate(total, params.Page, params.Limit)

	posts, err := h.posts.List(rctx, params.Filter, params.Sort, win.Offset, win.Limit)

	if err != nil {
		h.log.ErrorContext(rctx, "list posts", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not list posts")
		return
	}

	pagination := win.Pagination()

	RespondList(ctx, len(posts), &pagination, projectPosts(posts, params.Select))
}

// GetPost returns a single post with its comments expanded inline.
func (h *PostsHandler) GetPost(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	p, err := h.posts.GetByID(rctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, postNotFoundMessage)
			return
		}

		h.log.ErrorContext(rctx, "get post", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not load post")
		return
	}

	comments, err := h.comments.ListByPost(rctx, p.ID)

	if err != nil {
		h.log.ErrorContext(rctx, "list comments", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not load post")
		return
	}

	detail := postDetail{Post: p, Comments: comments}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"success": true,
		"data":    detail,
	})
}

// postDetail swaps the denormalized comment id list for the comments
// themselves on the detail view.
type postDetail struct {
	post.Post
	Comments []comment.Comment `json:"comments"`
}

func (h *PostsHandler) CreatePost(ctx *gin.Context) {
	author, ok := middlewares.UserRefFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return
	}

	var req post.CreatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	p := post.NewFromCreateRequest(req, author)

	if err := h.posts.Create(ctx.Request.Context(), p); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "create post", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not create post")
		return
	}

	RespondData(ctx, http.StatusCreated, p)
}

func (h *PostsHandler) UpdatePost(ctx *gin.Context) {
	p, ok := h.loadForMutation(ctx)

	if !ok {
		return
	}

	var req post.UpdatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	updated, err := h.posts.Update(ctx.Request.Context(), p.ID, req)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, postNotFoundMessage)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "update post", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not update post")
		return
	}

	RespondData(ctx, http.StatusOK, updated)
}

func (h *PostsHandler) DeletePost(ctx *gin.Context) {
	p, ok := h.loadForMutation(ctx)

	if !ok {
		return
	}

	if err := h.posts.Delete(ctx.Request.Context(), p.ID); err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, postNotFoundMessage)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "delete post", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not delete post")
		return
	}

	RespondData(ctx, http.StatusOK, gin.H{})
}

// LikePost records a like exactly once; liking twice is a client error.
func (h *PostsHandler) LikePost(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return
	}

	p, err := h.posts.Like(ctx.Request.Context(), ctx.Param("id"), identity.ID)

	if err != nil {
		switch {
		case errors.Is(err, post.ErrNotFound):
			RespondNotFound(ctx, postNotFoundMessage)
		case errors.Is(err, post.ErrAlreadyLiked):
			RespondConflict(ctx, "Post already liked")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "like post", slog.String("error", err.Error()))
			RespondInternal(ctx, "Could not like post")
		}
		return
	}

	RespondData(ctx, http.StatusOK, p)
}

func (h *PostsHandler) UnlikePost(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return
	}

	p, err := h.posts.Unlike(ctx.Request.Context(), ctx.Param("id"), identity.ID)

	if err != nil {
		switch {
		case errors.Is(err, post.ErrNotFound):
			RespondNotFound(ctx, postNotFoundMessage)
		case errors.Is(err, post.ErrNotLiked):
			RespondConflict(ctx, "Post has not been liked yet")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "unlike post", slog.String("error", err.Error()))
			RespondInternal(ctx, "Could not unlike post")
		}
		return
	}

	RespondData(ctx, http.StatusOK, p)
}

// loadForMutation fetches the post and enforces the owner-or-admin rule.
func (h *PostsHandler) loadForMutation(ctx *gin.Context) (post.Post, bool) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return post.Post{}, false
	}

	p, err := h.posts.GetByID(ctx.Request.Context(), ctx.Param("id"))

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, postNotFoundMessage)
			return post.Post{}, false
		}

		h.log.ErrorContext(ctx.Request.Context(), "get post", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not load post")
		return post.Post{}, false
	}

	if !authz.CanMutate(identity, p.Author.ID) {
		RespondForbidden(ctx, "Not allowed to modify this post")
		return post.Post{}, false
	}

	return p, true
}

// projectable fields of the list view; the projection happens at response
// assembly so row scanning stays static.
var projectableFields = map[string]func(p post.Post) interface{}{
	"id":        func(p post.Post) interface{} { return p.ID },
	"title":     func(p post.Post) interface{} { return p.Title },
	"slug":      func(p post.Post) interface{} { return p.Slug },
	"content":   func(p post.Post) interface{} { return p.Content },
	"excerpt":   func(p post.Post) interface{} { return p.Excerpt },
	"author":    func(p post.Post) interface{} { return p.Author },
	"category":  func(p post.Post) interface{} { return p.Category },
	"tags":      func(p post.Post) interface{} { return p.Tags },
	"image":     func(p post.Post) interface{} { return p.Image },
	"likes":     func(p post.Post) interface{} { return p.Likes },
	"comments":  func(p post.Post) interface{} { return p.CommentIDs },
	"createdAt": func(p post.Post) interface{} { return p.CreatedAt },
	"updatedAt": func(p post.Post) interface{} { return p.UpdatedAt },
}

// projectPosts narrows each post to the selected fields; id always rides
// along. With no selection the full posts are returned as-is.
func projectPosts(posts []post.Post, selected []string) interface{} {
	if len(selected) == 0 {
		return posts
	}

	fields := make([]string, 0, len(selected)+1)
	seen := map[string]bool{}

	for _, f := range append([]string{"id"}, selected...) {
		if _, ok := projectableFields[f]; !ok || seen[f] {
			continue
		}

		seen[f] = true
		fields = append(fields, f)
	}

	out := make([]map[string]interface{}, 0, len(posts))

	for _, p := range posts {
		row := make(map[string]interface{}, len(fields))

		for _, f := range fields {
			row[f] = projectableFields[f](p)
		}

		out = append(out, row)
	}

	return out
}
