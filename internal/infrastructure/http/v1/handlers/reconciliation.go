package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/domain/period"
	"stockledger/internal/domain/reconciliation"
	"stockledger/internal/infrastructure/export"
	"stockledger/internal/infrastructure/http/v1/dto"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReconciliationService calculates and reads reconciliations.
type ReconciliationService interface {
	Calculate(ctx context.Context, in reconciliation.CalculateInput) (*reconciliation.Outcome, error)
	Get(ctx context.Context, periodID, locationID id.ID) (*reconciliation.Reconciliation, error)
	ListByPeriod(ctx context.Context, periodID id.ID) ([]reconciliation.Reconciliation, error)
}

// PeriodReader loads a period for export headers.
type PeriodReader interface {
	Get(ctx context.Context, periodID id.ID) (*period.Period, error)
}

// LocationReader resolves locations for export headers.
type LocationReader interface {
	GetLocations(ctx context.Context, locationIDs []id.ID) (map[id.ID]*catalog.Location, error)
}

// ReconciliationHandler handles HTTP requests for reconciliations.
type ReconciliationHandler struct {
	*BaseHandler
	service   ReconciliationService
	periods   PeriodReader
	locations LocationReader
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(base *BaseHandler, service ReconciliationService, periods PeriodReader, locations LocationReader) *ReconciliationHandler {
	return &ReconciliationHandler{BaseHandler: base, service: service, periods: periods, locations: locations}
}

// RegisterRoutes mounts the reconciliation endpoints below /periods.
func (h *ReconciliationHandler) RegisterRoutes(periods *gin.RouterGroup) {
	periods.GET("/:id/reconciliations", h.List)
	periods.GET("/:id/reconciliations/export", h.Export)
	periods.POST("/:id/locations/:locationId/reconciliation", h.Calculate)
	periods.GET("/:id/locations/:locationId/reconciliation", h.Get)
}

// Calculate handles POST /periods/:id/locations/:locationId/reconciliation.
func (h *ReconciliationHandler) Calculate(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	locationID, ok := h.ParamID(c, "locationId")
	if !ok {
		return
	}
	var req dto.CalculateReconciliationRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	out, err := h.service.Calculate(c.Request.Context(), req.ToInput(periodID, locationID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOutcome(out))
}

// Get handles GET /periods/:id/locations/:locationId/reconciliation.
func (h *ReconciliationHandler) Get(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	locationID, ok := h.ParamID(c, "locationId")
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), periodID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReconciliation(r))
}

// List handles GET /periods/:id/reconciliations.
func (h *ReconciliationHandler) List(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	recs, err := h.service.ListByPeriod(c.Request.Context(), periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	out := make([]dto.ReconciliationResponse, len(recs))
	for i := range recs {
		out[i] = dto.FromReconciliation(&recs[i])
	}
	h.OK(c, dto.NewListResponse(out))
}

// Export handles GET /periods/:id/reconciliations/export: one worksheet per location.
func (h *ReconciliationHandler) Export(c *gin.Context) {
	periodID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.periods.Get(ctx, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	recs, err := h.service.ListByPeriod(ctx, periodID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(recs) == 0 {
		h.Error(c, apperror.NewBusinessRule(apperror.CodeBusinessRule, "Period has no reconciliations to export").
			WithDetail("period_id", periodID.String()))
		return
	}

	locationIDs := make([]id.ID, len(recs))
	for i, r := range recs {
		locationIDs[i] = r.LocationID
	}
	locations, err := h.locations.GetLocations(ctx, locationIDs)
	if err != nil {
		h.Error(c, err)
		return
	}

	sheets := make([]export.ReconciliationSheet, len(recs))
	for i := range recs {
		loc := locations[recs[i].LocationID]
		sheets[i] = export.ReconciliationSheet{
			PeriodName:   p.Name,
			LocationCode: loc.Code,
			LocationName: loc.Name,
			Record:       &recs[i],
		}
	}

	var buf bytes.Buffer
	if err := export.WriteReconciliations(&buf, sheets); err != nil {
		h.Error(c, err)
		return
	}

	filename := fmt.Sprintf("reconciliation-%s.xlsx", p.StartDate.Format("2006-01"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
