package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// DeliveryService posts and reads deliveries.
type DeliveryService interface {
	Post(ctx context.Context, doc *delivery.Delivery) (*delivery.PostResult, error)
	GetByID(ctx context.Context, docID id.ID) (*delivery.Delivery, error)
}

// DeliveryHandler handles HTTP requests for deliveries.
type DeliveryHandler struct {
	*BaseHandler
	service DeliveryService
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(base *BaseHandler, service DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the delivery endpoints.
func (h *DeliveryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Post)
	rg.GET("/:id", h.Get)
}

// Post handles POST /deliveries: the delivery is numbered, posted and checked
// for price variances in one call. The response lists the NCRs it raised.
func (h *DeliveryHandler) Post(c *gin.Context) {
	var req dto.PostDeliveryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity(h.Now())
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.service.Post(c.Request.Context(), doc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, res)
}

// Get handles GET /deliveries/:id.
func (h *DeliveryHandler) Get(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
