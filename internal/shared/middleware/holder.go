package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"library-backend/internal/shared/response"
)

const HolderIDKey = "holder_id"

// Holder identity arrives already authenticated, as an opaque header value.
// User-Id wins over X-User-Id when both are present.
var holderHeaders = []string{"User-Id", "X-User-Id"}

// HolderFromHeaders returns the first non-blank holder header.
func HolderFromHeaders(c *gin.Context) string {
	for _, h := range holderHeaders {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" {
			return v
		}
	}
	return ""
}

// RequireHolder rejects requests carrying neither holder header.
func RequireHolder() gin.HandlerFunc {
	return func(c *gin.Context) {
		holder := HolderFromHeaders(c)
		if holder == "" {
			response.BadRequest(c, "Either user-id or x-user-id header is required")
			return
		}

		c.Set(HolderIDKey, holder)
		c.Next()
	}
}

// HolderID reads the value stored by RequireHolder.
func HolderID(c *gin.Context) string {
	return c.GetString(HolderIDKey)
}
