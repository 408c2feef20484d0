package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// StockReader reads the stock ledger.
type StockReader interface {
	LocationStock(ctx context.Context, locationID id.ID) ([]stock.Balance, error)
	Movements(ctx context.Context, recorderID id.ID) ([]stock.Movement, error)
}

// StockHandler handles HTTP requests for the stock ledger.
type StockHandler struct {
	*BaseHandler
	service StockReader
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service StockReader) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the stock endpoints.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/locations/:locationId", h.LocationStock)
	rg.GET("/movements/:recorderId", h.Movements)
}

type balanceResponse struct {
	stock.Balance
	Value types.Money `json:"value"`
}

type locationStockResponse struct {
	LocationID id.ID             `json:"locationId"`
	Items      []balanceResponse `json:"items"`
	TotalValue types.Money       `json:"totalValue"`
}

// LocationStock handles GET /stock/locations/:locationId: non-zero rows with their value.
func (h *StockHandler) LocationStock(c *gin.Context) {
	locationID, ok := h.ParamID(c, "locationId")
	if !ok {
		return
	}
	balances, err := h.service.LocationStock(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := locationStockResponse{
		LocationID: locationID,
		Items:      make([]balanceResponse, len(balances)),
		TotalValue: types.Zero(),
	}
	for i, b := range balances {
		v := b.Value()
		resp.Items[i] = balanceResponse{Balance: b, Value: v}
		resp.TotalValue = resp.TotalValue.Add(v)
	}
	resp.TotalValue = types.RoundMoney(resp.TotalValue)
	h.OK(c, resp)
}

// Movements handles GET /stock/movements/:recorderId: the journal rows a document wrote.
func (h *StockHandler) Movements(c *gin.Context) {
	recorderID, ok := h.ParamID(c, "recorderId")
	if !ok {
		return
	}
	movements, err := h.service.Movements(c.Request.Context(), recorderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(movements))
}
