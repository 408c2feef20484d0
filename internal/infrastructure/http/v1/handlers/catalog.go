package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/catalog"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// CatalogReader lists items and locations.
type CatalogReader interface {
	ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error)
	ListLocations(ctx context.Context) ([]catalog.Location, error)
}

// CatalogHandler exposes the read side of the catalog.
type CatalogHandler struct {
	*BaseHandler
	catalog CatalogReader
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, catalog: catalog}
}

// RegisterRoutes mounts the catalog endpoints.
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/items", h.ListItems)
	rg.GET("/locations", h.ListLocations)
}

// ListItems handles GET /catalog/items?active=true.
func (h *CatalogHandler) ListItems(c *gin.Context) {
	items, err := h.catalog.ListItems(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items))
}

// ListLocations handles GET /catalog/locations.
func (h *CatalogHandler) ListLocations(c *gin.Context) {
	locations, err := h.catalog.ListLocations(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(locations))
}
