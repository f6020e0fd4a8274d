package handlers

import (
	"net/http"

	"github.com/geocoder89/bloghub/internal/query"
	"github.com/gin-gonic/gin"
)

// Every response uses the same envelope: {success, data, count?, pagination?}
// on the happy path, {success: false, error} otherwise.

func RespondData(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// RespondList wraps a collection; pagination is omitted for unpaged listings.
func RespondList(ctx *gin.Context, count int, pagination *query.Pagination, data interface{}) {
	body := gin.H{
		"success": true,
		"count":   count,
		"data":    data,
	}

	if pagination != nil {
		body["pagination"] = pagination
	}

	ctx.JSON(http.StatusOK, body)
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, message string, details interface{}) {
	body := gin.H{
		"success":   false,
		"error":     message,
		"requestId": requestIDFrom(ctx),
	}

	if details != nil {
		body["details"] = details
	}

	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, message, details)
}

// Conflicts (duplicate email, already-liked) surface as 400s in this API.
func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message, nil)
}
