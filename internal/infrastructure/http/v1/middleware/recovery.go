// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/pkg/logger"
)

// Recovery turns a panic into a 500 rendered by ErrorHandler.
// The stack and the posting context (route, actor, idempotency key) go to the
// log; the client only sees the request id and route.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			route := c.Request.Method + " " + c.FullPath()

			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"route", route,
				"actor", appctx.GetUserID(ctx),
				"idempotency_key", c.GetHeader(HeaderIdempotencyKey),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic in %s: %v", route, rec)).
				WithDetail("request_id", c.GetString(ContextRequestID)).
				WithDetail("route", route))
			c.Abort()
		}()
		c.Next()
	}
}
