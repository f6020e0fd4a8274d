package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/geocoder89/bloghub/internal/http/middlewares"
	"github.com/geocoder89/bloghub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

type UsersStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error)
}

type AuthHandler struct {
	users UsersStore
	jwt   TokenIssuer
	log   *slog.Logger
}

func NewAuthHandler(users UsersStore, jwt TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwt,
		log:   log,
	}
}

const invalidCredentialsMessage = "Invalid credentials"

// Register creates an account and immediately issues a token.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "hash password", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not register user")
		return
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(ctx.Request.Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "User with this email already exists")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "create user", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not register user")
		return
	}

	h.issueToken(ctx, u, http.StatusCreated)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.GetByEmail(ctx.Request.Context(), req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, invalidCredentialsMessage)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "lookup user", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, invalidCredentialsMessage)
		return
	}

	h.issueToken(ctx, u, http.StatusOK)
}

// Me returns the profile behind the current token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), identity.ID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "lookup user", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not load profile")
		return
	}

	RespondData(ctx, http.StatusOK, u)
}

// UpdateMe changes name and email of the current user.
func (h *AuthHandler) UpdateMe(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "Not authorized to access this route")
		return
	}

	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.UpdateProfile(ctx.Request.Context(), identity.ID, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "User with this email already exists")
		default:
			h.log.ErrorContext(ctx.Request.Context(), "update profile", slog.String("error", err.Error()))
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	RespondData(ctx, http.StatusOK, u)
}

func (h *AuthHandler) issueToken(ctx *gin.Context, u user.User, status int) {
	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "sign token", slog.String("error", err.Error()))
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(status, gin.H{
		"success": true,
		"token":   token,
	})
}
