package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "stockledger/internal/core/context"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Actor puts the calling user into the request context so services can stamp
// created_by, ready_by and approval fields.
//
// Authentication is done by the gateway in front of the ledger; the headers are
// trusted as given. Requests without X-User-ID run as "system".
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID != "" {
			actor := &appctx.Actor{
				UserID: userID,
				Name:   strings.TrimSpace(c.GetHeader(HeaderUserName)),
			}
			c.Request = c.Request.WithContext(appctx.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}
