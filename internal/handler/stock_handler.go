package handler

import (
	"net/http"

	"construction-pos/internal/middleware"
	"construction-pos/internal/model"
	"construction-pos/internal/service"
	"construction-pos/pkg/pagination"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockService  service.StockService
	ledgerService service.LedgerService
}

func NewStockHandler(stockService service.StockService, ledgerService service.LedgerService) *StockHandler {
	return &StockHandler{stockService: stockService, ledgerService: ledgerService}
}

func (h *StockHandler) RegisterRoutes(api *gin.RouterGroup) {
	stock := api.Group("/stock")
	{
		stock.POST("/movements", middleware.RequireRole(managerRoles...), h.ApplyMovement)
		stock.GET("/movements", middleware.RequireRole(anyRole...), h.ListMovements)
		stock.GET("/low", middleware.RequireRole(anyRole...), h.LowStock)
		stock.GET("/reconcile", middleware.RequireRole(managerRoles...), h.ReconcileAll)
		stock.GET("/reconcile/:productId", middleware.RequireRole(managerRoles...), h.Reconcile)
	}
}

// ApplyMovement records a manual stock change
// @Summary      Apply stock movement
// @Description  "in" and "out" move by quantity; "adjustment" sets the counted stock and needs a reason
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MovementRequest  true  "Movement"
// @Success      201      {object}  response.Response{data=service.MovementResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/stock/movements [post]
func (h *StockHandler) ApplyMovement(c *gin.Context) {
	var req service.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.stockService.ApplyMovement(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListMovements is the stock card
// @Summary      List stock movements
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Items per page (default 20)"
// @Param        product_id      query     int     false  "Product filter"
// @Param        movement_type   query     string  false  "in, out or adjustment"
// @Param        reference_type  query     string  false  "sale, purchase, adjustment or manual"
// @Param        reference_id    query     int     false  "Reference filter, e.g. a sale id"
// @Param        from            query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to              query     string  false  "RFC3339 or YYYY-MM-DD (inclusive day)"
// @Success      200             {object}  response.Response{data=response.Page}
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)
	window, err := pagination.ParseRange(c)
	if err != nil {
		badRequest(c, "Invalid date range: "+err.Error())
		return
	}
	productID, ok := optionalUint(c, "product_id")
	if !ok {
		return
	}
	referenceID, ok := optionalUint(c, "reference_id")
	if !ok {
		return
	}

	rows, total, err := h.ledgerService.ListMovements(c.Request.Context(), service.MovementQuery{
		ProductID:     productID,
		MovementType:  model.MovementType(c.Query("movement_type")),
		ReferenceType: model.ReferenceType(c.Query("reference_type")),
		ReferenceID:   referenceID,
		From:          window.From,
		To:            window.To,
		Page:          p.Page,
		Limit:         p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page(rows, total, p)))
}

// LowStock lists products at or below their reorder level
// @Summary      Low stock report
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.LowStockItem}
// @Router       /api/stock/low [get]
func (h *StockHandler) LowStock(c *gin.Context) {
	items, err := h.ledgerService.LowStockReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ReconcileAll lists products whose cached stock disagrees with the ledger
// @Summary      Reconcile all products
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.Reconciliation}
// @Router       /api/stock/reconcile [get]
func (h *StockHandler) ReconcileAll(c *gin.Context) {
	drifted, err := h.ledgerService.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, drifted))
}

// Reconcile compares one product's stock with the net of its movements
// @Summary      Reconcile product
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        productId  path      int  true  "Product ID"
// @Success      200        {object}  response.Response{data=service.Reconciliation}
// @Failure      404        {object}  response.Response
// @Router       /api/stock/reconcile/{productId} [get]
func (h *StockHandler) Reconcile(c *gin.Context) {
	id, ok := idParam(c, "productId")
	if !ok {
		return
	}
	rec, err := h.ledgerService.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}
