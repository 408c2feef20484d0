package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/export"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// PeriodService is the period lifecycle used by the handler.
type PeriodService interface {
	Create(ctx context.Context, in period.CreateInput) (*period.Period, error)
	Get(ctx context.Context, periodID id.ID) (*period.Period, error)
	AddLocations(ctx context.Context, periodID id.ID, locationIDs []id.ID) ([]period.Location, error)
	ListLocations(ctx context.Context, periodID id.ID) ([]period.Location, error)
	SetPrices(ctx context.Context, periodID id.ID, prices []period.PriceInput) ([]period.ItemPrice, error)
	ListPrices(ctx context.Context, periodID id.ID) ([]period.ItemPrice, error)
	Open(ctx context.Context, periodID id.ID) (*period.Period, error)
	MarkLocationReady(ctx context.Context, periodID, locationID id.ID) (*period.Location, error)
	MarkLocationOpen(ctx context.Context, periodID, locationID id.ID) (*period.Location, error)
	RequestClose(ctx context.Context, periodID id.ID) (*period.CloseRequest, error)
	ResolveApproval(ctx context.Context, approvalID id.ID, approved bool, comment string) (*period.Period, error)
	RollForward(ctx context.Context, closedID id.ID, opts period.RollForwardOptions) (*period.Period, error)
}

// ItemLister resolves item codes for spreadsheet imports.
type ItemLister interface {
	ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error)
}

// PeriodHandler handles HTTP requests for periods.
type PeriodHandler struct {
	*BaseHandler
	service PeriodService
	items   ItemLister
}

// NewPeriodHandler creates a new period handler.
func NewPeriodHandler(base *BaseHandler, service PeriodService, items ItemLister) *PeriodHandler {
	return &PeriodHandler{BaseHandler: base, service: service, items: items}
}

// RegisterRoutes mounts the period endpoints.
func (h *PeriodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/locations", h.ListLocations)
	rg.POST("/:id/locations", h.AddLocations)
	rg.POST("/:id/locations/:locationId/ready", h.MarkLocationReady)
	rg.POST("/:id/locations/:locationId/reopen", h.MarkLocationOpen)
	rg.GET("/:id/prices", h.ListPrices)
	rg.PUT("/:id/prices", h.SetPrice)
	rg.POST("/:id/prices/import", h.ImportPrices)
	rg.POST("/:id/open", h.Open)
	rg.POST("/:id/close-request", h.RequestClose)
	rg.POST("/:id/roll-forward", h.RollForward)
}

// Create handles POST /periods.
func (h *PeriodHandler) Create(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	p, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// Get handles GET /periods/:id.
func (h *PeriodHandler) Get(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// ListLocations handles GET /periods/:id/locations.
func (h *PeriodHandler) ListLocations(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	locations, err := h.service.ListLocations(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(locations))
}

// AddLocations handles POST /periods/:id/locations.
func (h *PeriodHandler) AddLocations(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.AddLocationsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ids, err := dto.ParseIDs("locationIds", req.LocationIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	locations, err := h.service.AddLocations(c.Request.Context(), periodID, ids)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(locations))
}

// MarkLocationReady handles POST /periods/:id/locations/:locationId/ready.
func (h *PeriodHandler) MarkLocationReady(c *gin.Context) {
	h.locationTransition(c, h.service.MarkLocationReady)
}

// MarkLocationOpen handles POST /periods/:id/locations/:locationId/reopen.
func (h *PeriodHandler) MarkLocationOpen(c *gin.Context) {
	h.locationTransition(c, h.service.MarkLocationOpen)
}

func (h *PeriodHandler) locationTransition(c *gin.Context, fn func(ctx context.Context, periodID, locationID id.ID) (*period.Location, error)) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	locationID, ok := h.ParamID(c, "locationId")
	if !ok {
		return
	}
	loc, err := fn(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// ListPrices handles GET /periods/:id/prices.
func (h *PeriodHandler) ListPrices(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	prices, err := h.service.ListPrices(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(prices))
}

// SetPrice handles PUT /periods/:id/prices.
func (h *PeriodHandler) SetPrice(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.SetPriceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	prices, err := h.service.SetPrices(c.Request.Context(), periodID, []period.PriceInput{in})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, prices[0])
}

// ImportPrices handles POST /periods/:id/prices/import (multipart field "file").
// Rows are matched to items by code; the whole sheet is stored or nothing is.
func (h *PeriodHandler) ImportPrices(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewFieldValidation("file", "is required").WithCause(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewFieldValidation("file", "cannot be read").WithCause(err))
		return
	}
	defer f.Close()

	rows, err := export.ParsePrices(f)
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	items, err := h.items.ListItems(ctx, true)
	if err != nil {
		h.Error(c, err)
		return
	}
	byCode := make(map[string]id.ID, len(items))
	for _, it := range items {
		byCode[it.Code] = it.ID
	}

	inputs := make([]period.PriceInput, 0, len(rows))
	for _, r := range rows {
		itemID, found := byCode[r.ItemCode]
		if !found {
			h.Error(c, apperror.NewValidation(fmt.Sprintf("unknown or inactive item code %q", r.ItemCode)).
				WithDetail("row", r.Row).
				WithDetail("code", r.ItemCode))
			return
		}
		inputs = append(inputs, period.PriceInput{ItemID: itemID, Price: r.Price, Currency: r.Currency})
	}

	prices, err := h.service.SetPrices(ctx, periodID, inputs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.PriceImportResponse{PeriodID: periodID, Imported: len(prices), Prices: prices})
}

// Open handles POST /periods/:id/open.
func (h *PeriodHandler) Open(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Open(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// RequestClose handles POST /periods/:id/close-request.
// Open NCRs do not block the request; they come back as warnings.
func (h *PeriodHandler) RequestClose(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.RequestClose(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// ResolveApproval handles POST /approvals/:id/resolve.
func (h *PeriodHandler) ResolveApproval(c *gin.Context) {
	approvalID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveApprovalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.service.ResolveApproval(c.Request.Context(), approvalID, *req.Approved, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// RollForward handles POST /periods/:id/roll-forward.
func (h *PeriodHandler) RollForward(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.RollForwardRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	opts, err := req.ToOptions()
	if err != nil {
		h.Error(c, err)
		return
	}
	p, err := h.service.RollForward(c.Request.Context(), periodID, opts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}
