package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// NCRService raises, moves and aggregates NCRs.
type NCRService interface {
	CreateManual(ctx context.Context, in ncr.ManualInput) (*ncr.NCR, error)
	UpdateStatus(ctx context.Context, ncrID id.ID, change ncr.StatusChange) (*ncr.NCR, error)
	Get(ctx context.Context, ncrID id.ID) (*ncr.NCR, error)
	ForScope(ctx context.Context, periodID, locationID id.ID) ([]ncr.NCR, error)
	Summary(ctx context.Context, periodID, locationID id.ID) (ncr.Summary, error)
}

// NCRHandler handles HTTP requests for non-conformance reports.
type NCRHandler struct {
	*BaseHandler
	service NCRService
}

// NewNCRHandler creates a new NCR handler.
func NewNCRHandler(base *BaseHandler, service NCRService) *NCRHandler {
	return &NCRHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the NCR endpoints.
func (h *NCRHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/summary", h.Summary)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/status", h.UpdateStatus)
}

// Create handles POST /ncrs.
func (h *NCRHandler) Create(c *gin.Context) {
	var req dto.CreateNCRRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	n, err := h.service.CreateManual(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, n)
}

// Get handles GET /ncrs/:id.
func (h *NCRHandler) Get(c *gin.Context) {
	ncrID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.Get(c.Request.Context(), ncrID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, n)
}

// UpdateStatus handles POST /ncrs/:id/status.
func (h *NCRHandler) UpdateStatus(c *gin.Context) {
	ncrID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateNCRStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	n, err := h.service.UpdateStatus(c.Request.Context(), ncrID, req.ToChange())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, n)
}

// List handles GET /ncrs?periodId=&locationId=.
func (h *NCRHandler) List(c *gin.Context) {
	periodID, locationID, ok := h.scope(c)
	if !ok {
		return
	}
	ncrs, err := h.service.ForScope(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(ncrs))
}

// Summary handles GET /ncrs/summary?periodId=&locationId=.
func (h *NCRHandler) Summary(c *gin.Context) {
	periodID, locationID, ok := h.scope(c)
	if !ok {
		return
	}
	s, err := h.service.Summary(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

func (h *NCRHandler) scope(c *gin.Context) (id.ID, id.ID, bool) {
	periodID, err := dto.ParseID("periodId", c.Query("periodId"))
	if err != nil {
		h.Error(c, err)
		return id.ID{}, id.ID{}, false
	}
	locationID, err := dto.ParseID("locationId", c.Query("locationId"))
	if err != nil {
		h.Error(c, err)
		return id.ID{}, id.ID{}, false
	}
	return periodID, locationID, true
}
