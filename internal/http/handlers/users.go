package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UsersAdminStore interface {
	List(ctx context.Context) ([]user.User, error)
	Delete(ctx context.Context, id string) error
}

// UsersHandler is the admin-only account surface.
type UsersHandler struct {
	users UsersAdminStore
	log   *slog.Logger
}

func NewUsersHandler(users UsersAdminStore, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		users: users,
		log:   log,
	}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	users, err := h.users.List(ctx.Request.Context())

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list users", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not list users")
		return
	}

	RespondList(ctx, len(users), nil, users)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	err := h.users.Delete(ctx.Request.Context(), ctx.Param("id"))

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrHasContent):
			RespondConflict(ctx, "User still owns posts or comments")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "delete user", slog.String("error", err.Error()))
			RespondInternal(ctx, "Could not delete user")
		}
		return
	}

	RespondData(ctx, http.StatusOK, gin.H{})
}
