package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
	"github.com/ltdat/inventory-ledger/internal/core/service"
)

type HTTPHandler struct {
	ledger           *service.LedgerService
	defaultWarehouse string
}

type ApplySaleRequest struct {
	SaleID      string  `json:"sale_id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id" binding:"required"`
	WarehouseID string  `json:"warehouse_id"`
	Quantity    int     `json:"quantity" binding:"required"`
	UnitPrice   float64 `json:"unit_price"`
}

type ApplySaleResponse struct {
	SaleID string `json:"sale_id,omitempty"`
	Stock  int    `json:"stock"`
}

type StockResponse struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Stock       int    `json:"stock"`
}

type RestockRequest struct {
	Stock int `json:"stock" binding:"min=0"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(ledger *service.LedgerService, defaultWarehouse string) *HTTPHandler {
	return &HTTPHandler{ledger: ledger, defaultWarehouse: defaultWarehouse}
}

// Register mounts the ledger routes on the router.
func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	api := r.Group("/api")
	api.POST("/sales", h.ApplySale)
	api.GET("/stock/:product_id/:warehouse_id", h.CurrentStock)
	api.PUT("/stock/:product_id/:warehouse_id", h.Restock)
}

func (h *HTTPHandler) ApplySale(c *gin.Context) {
	var req ApplySaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.WarehouseID == "" {
		// Order capture is supposed to name the warehouse; fall back to the
		// configured default rather than guessing among records.
		req.WarehouseID = h.defaultWarehouse
	}

	sale := domain.SaleEvent{
		ID:          req.SaleID,
		OrderID:     req.OrderID,
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		CreatedAt:   time.Now(),
	}

	stock, err := h.ledger.ApplySale(c.Request.Context(), sale)
	if err != nil {
		status, msg := applyErrorStatus(err)
		c.JSON(status, errorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, ApplySaleResponse{SaleID: sale.ID, Stock: stock})
}

func (h *HTTPHandler) CurrentStock(c *gin.Context) {
	productID := c.Param("product_id")
	warehouseID := c.Param("warehouse_id")

	stock, err := h.ledger.CurrentStock(c.Request.Context(), productID, warehouseID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProduct) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "unknown product/warehouse"})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, StockResponse{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Stock:       stock,
	})
}

func (h *HTTPHandler) Restock(c *gin.Context) {
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rec := domain.InventoryRecord{
		ProductID:       c.Param("product_id"),
		WarehouseID:     c.Param("warehouse_id"),
		Stock:           req.Stock,
		LastStockUpdate: time.Now(),
	}
	if err := h.ledger.Restock(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusOK, StockResponse{
		ProductID:   rec.ProductID,
		WarehouseID: rec.WarehouseID,
		Stock:       rec.Stock,
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func applyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "quantity must be a positive integer"
	case errors.Is(err, domain.ErrUnknownProduct):
		return http.StatusNotFound, "unknown product/warehouse"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient stock"
	case errors.Is(err, domain.ErrDuplicateSale):
		return http.StatusConflict, "sale already applied"
	case errors.Is(err, domain.ErrConcurrencyTimeout):
		return http.StatusServiceUnavailable, "ledger busy, retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
