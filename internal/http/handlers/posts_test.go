package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/bloghub/internal/domain/comment"
	"github.com/geocoder89/bloghub/internal/domain/post"
	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/geocoder89/bloghub/internal/http/handlers"
	"github.com/geocoder89/bloghub/internal/http/middlewares"
	"github.com/geocoder89/bloghub/internal/query"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// discard handler logs in tests

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fake repository implementation of the handlers.PostsStore interface

type fakePostsRepo struct {
	createFn func(ctx context.Context, p post.Post) error
	listFn   func(ctx context.Context, f query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error)
	countFn  func(ctx context.Context, f query.Filter) (int, error)
	getFn    func(ctx context.Context, id string) (post.Post, error)
	updateFn func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
	deleteFn func(ctx context.Context, id string) error
	likeFn   func(ctx context.Context, postID, userID string) (post.Post, error)
	unlikeFn func(ctx context.Context, postID, userID string) (post.Post, error)
}

func (f *fakePostsRepo) Create(ctx context.Context, p post.Post) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}

	return nil
}

func (f *fakePostsRepo) List(ctx context.Context, fl query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error) {
	if f.listFn != nil {
		return f.listFn(ctx, fl, sort, offset, limit)
	}

	return nil, nil
}

func (f *fakePostsRepo) Count(ctx context.Context, fl query.Filter) (int, error) {
	if f.countFn != nil {
		return f.countFn(ctx, fl)
	}

	return 0, nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return post.Post{}, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}

	return post.Post{}, nil
}

func (f *fakePostsRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return nil
}

func (f *fakePostsRepo) Like(ctx context.Context, postID, userID string) (post.Post, error) {
	if f.likeFn != nil {
		return f.likeFn(ctx, postID, userID)
	}

	return post.Post{}, nil
}

func (f *fakePostsRepo) Unlike(ctx context.Context, postID, userID string) (post.Post, error) {
	if f.unlikeFn != nil {
		return f.unlikeFn(ctx, postID, userID)
	}

	return post.Post{}, nil
}

// Fake comments reader for the detail view

type fakeCommentsReader struct {
	listByPostFn func(ctx context.Context, postID string) ([]comment.Comment, error)
}

func (f *fakeCommentsReader) ListByPost(ctx context.Context, postID string) ([]comment.Comment, error) {
	if f.listByPostFn != nil {
		return f.listByPostFn(ctx, postID)
	}

	return nil, nil
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, mws []gin.HandlerFunc, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	chain := append(append([]gin.HandlerFunc{}, mws...), h)

	r.Handle(method, path, chain...)

	return r
}

// asIdentity stands in for the auth middleware and stashes an identity.

func asIdentity(id, role, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, id)
		c.Set(middlewares.CtxUserRole, role)
		c.Set(middlewares.CtxUserName, name)

		c.Next()
	}
}

func samplePost(id, authorID string) post.Post {
	now := time.Now().UTC()

	return post.Post{
		ID:         id,
		Title:      "Go Concurrency Patterns",
		Slug:       "go-concurrency-patterns",
		Content:    "Channels all the way down.",
		Excerpt:    "Channels.",
		Author:     user.Ref{ID: authorID, Name: "Ada"},
		Category:   "technology",
		Tags:       []string{"go"},
		Image:      post.DefaultImage,
		Likes:      []string{},
		CommentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}

	if err := json.Unmarshal(body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON body: %v, body=%s", err, body.String())
	}

	return out
}

func TestListPostsHandler(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		repoSetup      func(*fakePostsRepo)
		wantStatusCode int
		wantCount      int
		wantNextPage   bool
	}{
		{
			name: "success_defaults",
			url:  "/posts",
			repoSetup: func(f *fakePostsRepo) {
				f.countFn = func(ctx context.Context, fl query.Filter) (int, error) {
					return 2, nil
				}
				f.listFn = func(ctx context.Context, fl query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error) {
					if offset != 0 || limit != 10 {
						return nil, errors.New("unexpected window")
					}

					return []post.Post{samplePost("p1", "u1"), samplePost("p2", "u1")}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      2,
		},
		{
			name: "success_second_page_has_prev_and_next",
			url:  "/posts?page=2&limit=5",
			repoSetup: func(f *fakePostsRepo) {
				f.countFn = func(ctx context.Context, fl query.Filter) (int, error) {
					return 12, nil
				}
				f.listFn = func(ctx context.Context, fl query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error) {
					if offset != 5 || limit != 5 {
						return nil, errors.New("unexpected window")
					}

					return []post.Post{samplePost("p6", "u1")}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      1,
			wantNextPage:   true,
		},
		{
			name: "filter_passed_through",
			url:  "/posts?category=news&likes[gte]=3",
			repoSetup: func(f *fakePostsRepo) {
				f.countFn = func(ctx context.Context, fl query.Filter) (int, error) {
					if len(fl.Conditions) != 2 {
						return 0, errors.New("conditions not parsed")
					}

					return 0, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
		{
			name:           "unknown_filter_field_rejected",
			url:            "/posts?password[gte]=x",
			repoSetup:      nil,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "repo_error",
			url:  "/posts",
			repoSetup: func(f *fakePostsRepo) {
				f.countFn = func(ctx context.Context, fl query.Filter) (int, error) {
					return 0, errors.New("db down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePostsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)
			}

			h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

			r := setupRouter(http.MethodGet, "/posts", nil, h.ListPosts)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			body := decodeEnvelope(t, w.Body)

			count, ok := body["count"].(float64)

			if !ok || int(count) != tt.wantCount {
				t.Fatalf("got count %v, want %d", body["count"], tt.wantCount)
			}

			if tt.wantNextPage {
				pagination, ok := body["pagination"].(map[string]interface{})

				if !ok {
					t.Fatalf("missing pagination: %s", w.Body.String())
				}

				if pagination["next"] == nil || pagination["prev"] == nil {
					t.Fatalf("expected next and prev, got %v", pagination)
				}
			}
		})
	}
}

func TestListPostsHandlerSelectProjection(t *testing.T) {
	repo := &fakePostsRepo{
		countFn: func(ctx context.Context, fl query.Filter) (int, error) {
			return 1, nil
		},
		listFn: func(ctx context.Context, fl query.Filter, sort []query.SortKey, offset, limit int) ([]post.Post, error) {
			return []post.Post{samplePost("p1", "u1")}, nil
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

	r := setupRouter(http.MethodGet, "/posts", nil, h.ListPosts)

	req := httptest.NewRequest(http.MethodGet, "/posts?select=title,category", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	body := decodeEnvelope(t, w.Body)

	rows, ok := body["data"].([]interface{})

	if !ok || len(rows) != 1 {
		t.Fatalf("expected one row, got %v", body["data"])
	}

	row, ok := rows[0].(map[string]interface{})

	if !ok {
		t.Fatalf("row is not an object: %v", rows[0])
	}

	// id rides along with the selection; nothing else does
	for _, key := range []string{"id", "title", "category"} {
		if _, ok := row[key]; !ok {
			t.Errorf("missing selected field %q", key)
		}
	}

	if _, ok := row["content"]; ok {
		t.Errorf("content should have been projected away")
	}
}

func TestGetPostHandler(t *testing.T) {
	tests := []struct {
		name           string
		repoSetup      func(*fakePostsRepo, *fakeCommentsReader)
		wantStatusCode int
	}{
		{
			name: "success_with_comments",
			repoSetup: func(f *fakePostsRepo, cr *fakeCommentsReader) {
				f.getFn = func(ctx context.Context, id string) (post.Post, error) {
					return samplePost(id, "u1"), nil
				}
				cr.listByPostFn = func(ctx context.Context, postID string) ([]comment.Comment, error) {
					return []comment.Comment{
						{ID: "c1", Content: "Nice", Author: user.Ref{ID: "u2", Name: "Bob"}, PostID: postID},
					}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			repoSetup: func(f *fakePostsRepo, cr *fakeCommentsReader) {
				f.getFn = func(ctx context.Context, id string) (post.Post, error) {
					return post.Post{}, post.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePostsRepo{}
			commentsReader := &fakeCommentsReader{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo, commentsReader)
			}

			h := handlers.NewPostsHandler(repo, commentsReader, testLogger())

			r := setupRouter(http.MethodGet, "/posts/:id", nil, h.GetPost)

			req := httptest.NewRequest(http.MethodGet, "/posts/"+newUUID(), nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				if w.Header().Get("ETag") == "" {
					t.Fatal("expected an ETag on the detail view")
				}

				body := decodeEnvelope(t, w.Body)

				data, ok := body["data"].(map[string]interface{})

				if !ok {
					t.Fatalf("missing data: %s", w.Body.String())
				}

				comments, ok := data["comments"].([]interface{})

				if !ok || len(comments) != 1 {
					t.Fatalf("expected comments expanded inline, got %v", data["comments"])
				}
			}
		})
	}
}

func TestGetPostHandlerETagRevalidation(t *testing.T) {
	repo := &fakePostsRepo{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			p := samplePost(id, "u1")
			p.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			p.UpdatedAt = p.CreatedAt

			return p, nil
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

	r := setupRouter(http.MethodGet, "/posts/:id", nil, h.GetPost)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/posts/p1", nil))

	etag := first.Header().Get("ETag")

	if first.Code != http.StatusOK || etag == "" {
		t.Fatalf("first request failed: status=%d etag=%q", first.Code, etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/posts/p1", nil)
	req.Header.Set("If-None-Match", etag)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)

	if second.Code != http.StatusNotModified {
		t.Fatalf("got status %d, want 304", second.Code)
	}
}

func TestCreatePostHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		identity       []gin.HandlerFunc
		repoSetup      func(*fakePostsRepo)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{
				"title": "Go Concurrency Patterns",
				"content": "Channels all the way down.",
				"excerpt": "Channels.",
				"category": "technology",
				"tags": ["go", "concurrency"]
			}`,
			identity: []gin.HandlerFunc{asIdentity("u1", user.RoleUser, "Ada")},
			repoSetup: func(f *fakePostsRepo) {
				f.createFn = func(ctx context.Context, p post.Post) error {
					if p.Slug != "go-concurrency-patterns" {
						return errors.New("slug not derived from title")
					}

					if p.Author.ID != "u1" || p.Author.Name != "Ada" {
						return errors.New("author not taken from identity")
					}

					if p.Image != post.DefaultImage {
						return errors.New("image default not applied")
					}

					return nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "invalid_category",
			body:           `{"title": "T", "content": "C", "excerpt": "E", "category": "sports"}`,
			identity:       []gin.HandlerFunc{asIdentity("u1", user.RoleUser, "Ada")},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing_required_fields",
			body:           `{"title": ""}`,
			identity:       []gin.HandlerFunc{asIdentity("u1", user.RoleUser, "Ada")},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "no_identity",
			body:           `{"title": "T", "content": "C", "excerpt": "E", "category": "news"}`,
			identity:       nil,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:     "repo_error",
			body:     `{"title": "T", "content": "C", "excerpt": "E", "category": "news"}`,
			identity: []gin.HandlerFunc{asIdentity("u1", user.RoleUser, "Ada")},
			repoSetup: func(f *fakePostsRepo) {
				f.createFn = func(ctx context.Context, p post.Post) error {
					return errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePostsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)
			}

			h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

			r := setupRouter(http.MethodPost, "/posts", tt.identity, h.CreatePost)

			req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeletePostHandlerOwnership(t *testing.T) {
	tests := []struct {
		name           string
		identity       gin.HandlerFunc
		wantStatusCode int
		wantDeleted    bool
	}{
		{
			name:           "owner_can_delete",
			identity:       asIdentity("owner", user.RoleUser, "Ada"),
			wantStatusCode: http.StatusOK,
			wantDeleted:    true,
		},
		{
			name:           "admin_can_delete",
			identity:       asIdentity("someone-else", user.RoleAdmin, "Root"),
			wantStatusCode: http.StatusOK,
			wantDeleted:    true,
		},
		{
			name:           "stranger_forbidden",
			identity:       asIdentity("someone-else", user.RoleUser, "Eve"),
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			deleted := false

			repo := &fakePostsRepo{
				getFn: func(ctx context.Context, id string) (post.Post, error) {
					return samplePost(id, "owner"), nil
				},
				deleteFn: func(ctx context.Context, id string) error {
					deleted = true
					return nil
				},
			}

			h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

			r := setupRouter(http.MethodDelete, "/posts/:id", []gin.HandlerFunc{tt.identity}, h.DeletePost)

			req := httptest.NewRequest(http.MethodDelete, "/posts/p1", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if deleted != tt.wantDeleted {
				t.Fatalf("deleted=%v, want %v", deleted, tt.wantDeleted)
			}
		})
	}
}

func TestUpdatePostHandler(t *testing.T) {
	newTitle := "Updated Title"

	repo := &fakePostsRepo{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return samplePost(id, "owner"), nil
		},
		updateFn: func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
			if req.Title == nil || *req.Title != newTitle {
				return post.Post{}, errors.New("partial update not passed through")
			}

			if req.Content != nil {
				return post.Post{}, errors.New("untouched field should stay nil")
			}

			p := samplePost(id, "owner")
			p.Title = *req.Title

			return p, nil
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

	r := setupRouter(http.MethodPut, "/posts/:id", []gin.HandlerFunc{asIdentity("owner", user.RoleUser, "Ada")}, h.UpdatePost)

	req := httptest.NewRequest(http.MethodPut, "/posts/p1", bytes.NewBufferString(`{"title": "`+newTitle+`"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestLikePostHandler(t *testing.T) {
	tests := []struct {
		name           string
		repoSetup      func(*fakePostsRepo)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "success",
			repoSetup: func(f *fakePostsRepo) {
				f.likeFn = func(ctx context.Context, postID, userID string) (post.Post, error) {
					p := samplePost(postID, "owner")
					p.Likes = []string{userID}

					return p, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "already_liked",
			repoSetup: func(f *fakePostsRepo) {
				f.likeFn = func(ctx context.Context, postID, userID string) (post.Post, error) {
					return post.Post{}, post.ErrAlreadyLiked
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Post already liked",
		},
		{
			name: "missing_post",
			repoSetup: func(f *fakePostsRepo) {
				f.likeFn = func(ctx context.Context, postID, userID string) (post.Post, error) {
					return post.Post{}, post.ErrNotFound
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePostsRepo{}

			tt.repoSetup(repo)

			h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

			r := setupRouter(http.MethodPut, "/posts/:id/like", []gin.HandlerFunc{asIdentity("u9", user.RoleUser, "Zed")}, h.LikePost)

			req := httptest.NewRequest(http.MethodPut, "/posts/p1/like", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantError != "" {
				body := decodeEnvelope(t, w.Body)

				if body["error"] != tt.wantError {
					t.Fatalf("got error %v, want %q", body["error"], tt.wantError)
				}
			}
		})
	}
}

func TestUnlikePostHandler(t *testing.T) {
	repo := &fakePostsRepo{
		unlikeFn: func(ctx context.Context, postID, userID string) (post.Post, error) {
			return post.Post{}, post.ErrNotLiked
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsReader{}, testLogger())

	r := setupRouter(http.MethodPut, "/posts/:id/unlike", []gin.HandlerFunc{asIdentity("u9", user.RoleUser, "Zed")}, h.UnlikePost)

	req := httptest.NewRequest(http.MethodPut, "/posts/p1/unlike", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}
