package handler

import (
	"net/http"
	"strconv"
	"time"

	"construction-pos/internal/middleware"
	"construction-pos/internal/service"
	"construction-pos/pkg/pagination"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(api *gin.RouterGroup) {
	reports := api.Group("/reports", middleware.RequireRole(managerRoles...))
	{
		reports.GET("/dashboard", h.Dashboard)
		reports.GET("/sales", h.SalesSummary)
		reports.GET("/top-products", h.TopProducts)
		reports.GET("/inventory", h.Inventory)
	}
}

// window defaults to the current month when from/to are omitted.
func window(c *gin.Context) (time.Time, time.Time, bool) {
	r, err := pagination.ParseRange(c)
	if err != nil {
		badRequest(c, "Invalid date range: "+err.Error())
		return time.Time{}, time.Time{}, false
	}
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)
	if r.From != nil {
		from = *r.From
	}
	if r.To != nil {
		to = *r.To
	}
	return from, to, true
}

// Dashboard returns the home screen figures
// @Summary      Dashboard
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.DashboardStats}
// @Router       /api/reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	stats, err := h.reportService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// SalesSummary sums sales in a window
// @Summary      Sales summary
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "RFC3339 or YYYY-MM-DD (default: first of this month)"
// @Param        to    query     string  false  "RFC3339 or YYYY-MM-DD, inclusive day"
// @Success      200   {object}  response.Response{data=model.SalesSummary}
// @Failure      400   {object}  response.Response
// @Router       /api/reports/sales [get]
func (h *ReportHandler) SalesSummary(c *gin.Context) {
	from, to, ok := window(c)
	if !ok {
		return
	}
	summary, err := h.reportService.SalesSummary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// TopProducts ranks products by quantity sold
// @Summary      Top products
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        from   query     string  false  "RFC3339 or YYYY-MM-DD (default: first of this month)"
// @Param        to     query     string  false  "RFC3339 or YYYY-MM-DD, inclusive day"
// @Param        limit  query     int     false  "How many products (default 10)"
// @Success      200    {object}  response.Response{data=[]model.ProductRanking}
// @Failure      400    {object}  response.Response
// @Router       /api/reports/top-products [get]
func (h *ReportHandler) TopProducts(c *gin.Context) {
	from, to, ok := window(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	rankings, err := h.reportService.TopProducts(c.Request.Context(), from, to, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rankings))
}

// Inventory values stock on hand at cost and at retail
// @Summary      Inventory valuation
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        category_id  query     int  false  "Only this category"
// @Success      200          {object}  response.Response{data=model.InventoryValuation}
// @Failure      400          {object}  response.Response
// @Router       /api/reports/inventory [get]
func (h *ReportHandler) Inventory(c *gin.Context) {
	categoryID, ok := optionalUint(c, "category_id")
	if !ok {
		return
	}
	report, err := h.reportService.InventoryValuation(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
