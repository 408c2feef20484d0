package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/costing"
	"stockledger/internal/domain/reconciliation"
	"stockledger/internal/domain/variance"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// CalculatorHandler exposes the pure calculations so clients can preview
// results before posting. Nothing is stored.
type CalculatorHandler struct {
	*BaseHandler
	variance *variance.Config
}

// NewCalculatorHandler creates a calculator handler. cfg is the configured
// variance policy used when a request brings no thresholds of its own.
func NewCalculatorHandler(base *BaseHandler, cfg *variance.Config) *CalculatorHandler {
	return &CalculatorHandler{BaseHandler: base, variance: cfg}
}

// RegisterRoutes mounts the calculator endpoints.
func (h *CalculatorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/wac", h.WAC)
	rg.POST("/variance", h.Variance)
	rg.POST("/consumption", h.Consumption)
}

// WAC handles POST /calculators/wac.
func (h *CalculatorHandler) WAC(c *gin.Context) {
	var req dto.WACRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := costing.CalculateWAC(
		dto.OrZero(req.CurrentQty),
		dto.OrZero(req.CurrentWAC),
		*req.ReceivedQty,
		*req.ReceiptPrice,
	)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Variance handles POST /calculators/variance.
func (h *CalculatorHandler) Variance(c *gin.Context) {
	var req dto.VarianceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cfg := h.variance
	if req.HasThresholds() {
		cfg = &variance.Config{ThresholdPercent: req.ThresholdPercent, ThresholdAmount: req.ThresholdAmount}
	}
	res, err := variance.CheckPriceVariance(*req.UnitPrice, *req.PeriodPrice, *req.Quantity, cfg)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Consumption handles POST /calculators/consumption.
func (h *CalculatorHandler) Consumption(c *gin.Context) {
	var req dto.ConsumptionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, a := req.Split()
	res, err := reconciliation.CalculateConsumption(m, a)
	if err != nil {
		h.Error(c, err)
		return
	}
	resp := dto.ConsumptionResponse{Result: res}
	if req.TotalMandays != nil {
		cost, err := reconciliation.CalculateMandayCost(res.Consumption, *req.TotalMandays)
		if err != nil {
			h.Error(c, err)
			return
		}
		resp.MandayCost = &cost
	}
	c.JSON(http.StatusOK, resp)
}
