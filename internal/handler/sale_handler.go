package handler

import (
	"net/http"

	"construction-pos/internal/middleware"
	"construction-pos/internal/service"
	"construction-pos/pkg/pagination"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

type SaleHandler struct {
	saleService service.SaleService
}

func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

func (h *SaleHandler) RegisterRoutes(api *gin.RouterGroup) {
	sales := api.Group("/sales", middleware.RequireRole(anyRole...))
	{
		sales.POST("", h.ProcessSale)
		sales.GET("", h.ListSales)
		sales.GET("/number/:number", h.GetSaleByNumber)
		sales.GET("/:id", h.GetSale)
		sales.GET("/:id/receipt", h.Receipt)
	}
}

// ProcessSale commits a cart as a sale
// @Summary      Process sale
// @Description  Locks the products, checks stock, numbers the sale and records one stock movement per line in a single transaction
// @Tags         sales
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaleRequest  true  "Cart and payment"
// @Success      201      {object}  response.Response{data=service.SaleResult}
// @Failure      400      {object}  response.Response  "validation"
// @Failure      404      {object}  response.Response  "unknown or inactive product/customer"
// @Failure      409      {object}  response.Response  "insufficient stock, credit limit or duplicate number"
// @Failure      500      {object}  response.Response  "rolled back"
// @Router       /api/sales [post]
func (h *SaleHandler) ProcessSale(c *gin.Context) {
	var req service.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	result, err := h.saleService.ProcessSale(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListSales returns sale history, newest first
// @Summary      List sales
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        from         query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to           query     string  false  "RFC3339 or YYYY-MM-DD (inclusive day)"
// @Param        customer_id  query     int     false  "Customer filter"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	p := pagination.Parse(c)
	window, err := pagination.ParseRange(c)
	if err != nil {
		badRequest(c, "Invalid date range: "+err.Error())
		return
	}
	customerID, ok := optionalUint(c, "customer_id")
	if !ok {
		return
	}
	sales, total, err := h.saleService.ListSales(c.Request.Context(), service.SaleListQuery{
		From:       window.From,
		To:         window.To,
		CustomerID: customerID,
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page(sales, total, p)))
}

// GetSale returns a sale with its items
// @Summary      Get sale
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Sale ID"
// @Success      200  {object}  response.Response{data=model.Sale}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// GetSaleByNumber looks a sale up by its printed number
// @Summary      Get sale by number
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        number  path      string  true  "Sale number, e.g. POS202405010001"
// @Success      200     {object}  response.Response{data=model.Sale}
// @Failure      404     {object}  response.Response
// @Router       /api/sales/number/{number} [get]
func (h *SaleHandler) GetSaleByNumber(c *gin.Context) {
	sale, err := h.saleService.GetSaleByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// Receipt renders a sale for printing
// @Summary      Sale receipt
// @Tags         sales
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Sale ID"
// @Success      200  {object}  response.Response{data=service.Receipt}
// @Failure      404  {object}  response.Response
// @Router       /api/sales/{id}/receipt [get]
func (h *SaleHandler) Receipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	receipt, err := h.saleService.Receipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, receipt))
}
