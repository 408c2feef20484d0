package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by handlers that mount their own endpoints.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers every handler under its path prefix.
//
// Usage:
//
//	Mount(api, map[string]RouteRegistrar{
//		"/deliveries": handlers.NewDeliveryHandler(base, deliveries),
//		"/issues":     handlers.NewIssueHandler(base, issues),
//	})
func Mount(rg *gin.RouterGroup, routes map[string]RouteRegistrar) {
	for prefix, h := range routes {
		h.RegisterRoutes(rg.Group(prefix))
	}
}
