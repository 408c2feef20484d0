package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// TransferService drives transfer approval.
type TransferService interface {
	Create(ctx context.Context, doc *transfer.Transfer) (*transfer.Transfer, error)
	Approve(ctx context.Context, docID id.ID) (*transfer.Transfer, error)
	Reject(ctx context.Context, docID id.ID) (*transfer.Transfer, error)
	GetByID(ctx context.Context, docID id.ID) (*transfer.Transfer, error)
}

// TransferHandler handles HTTP requests for transfers.
type TransferHandler struct {
	*BaseHandler
	service TransferService
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service TransferService) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the transfer endpoints.
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
}

// Create handles POST /transfers. Stock does not move until approval.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity(h.Now())
	if err != nil {
		h.Error(c, err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), doc)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created)
}

// Get handles GET /transfers/:id.
func (h *TransferHandler) Get(c *gin.Context) {
	h.byID(c, h.service.GetByID)
}

// Approve handles POST /transfers/:id/approve.
func (h *TransferHandler) Approve(c *gin.Context) {
	h.byID(c, h.service.Approve)
}

// Reject handles POST /transfers/:id/reject.
func (h *TransferHandler) Reject(c *gin.Context) {
	h.byID(c, h.service.Reject)
}

func (h *TransferHandler) byID(c *gin.Context, fn func(ctx context.Context, docID id.ID) (*transfer.Transfer, error)) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := fn(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}
