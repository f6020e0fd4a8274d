package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/bloghub/internal/auth"
	"github.com/geocoder89/bloghub/internal/authz"
	"github.com/geocoder89/bloghub/internal/config"
	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserStore
}

func NewAuthMiddleware(jwt TokenVerifier, users UserStore) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// Every verification failure collapses into this one message; callers must
// not learn which part of authentication failed.
const unauthorizedMessage = "Not authorized to access this route"

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   unauthorizedMessage,
	})
}

// RequireAuth resolves the bearer token into an identity. The token must
// verify and still reference a stored user; the user's current role wins over
// whatever the token was minted with.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

		if raw == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)

		if err != nil {
			abortUnauthorized(c)
			return
		}

		cctx, cancel := config.WithTimeout(3 * time.Second)

		defer cancel()

		u, err := m.users.GetByID(cctx, claims.UserID)

		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(CtxUserID, u.ID)
		c.Set(CtxUserRole, u.Role)
		c.Set(CtxUserEmail, u.Email)
		c.Set(CtxUserName, u.Name)

		c.Next()
	}
}

// IdentityFromContext returns the identity stashed by RequireAuth.
func IdentityFromContext(c *gin.Context) (authz.Identity, bool) {
	id, okID := c.Get(CtxUserID)
	role, okRole := c.Get(CtxUserRole)

	if !okID || !okRole {
		return authz.Identity{}, false
	}

	idStr, okID := id.(string)
	roleStr, okRole := role.(string)

	if !okID || !okRole || idStr == "" {
		return authz.Identity{}, false
	}

	return authz.Identity{ID: idStr, Role: roleStr}, true
}

// UserRefFromContext builds the author reference stored on posts and comments.
func UserRefFromContext(c *gin.Context) (user.Ref, bool) {
	identity, ok := IdentityFromContext(c)

	if !ok {
		return user.Ref{}, false
	}

	name := c.GetString(CtxUserName)

	return user.Ref{ID: identity.ID, Name: name}, true
}
