package handler

import (
	"net/http"

	"construction-pos/internal/middleware"
	"construction-pos/internal/service"
	"construction-pos/pkg/pagination"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(api *gin.RouterGroup) {
	categories := api.Group("/categories")
	{
		categories.GET("", middleware.RequireRole(anyRole...), h.ListCategories)
		categories.POST("", middleware.RequireRole(managerRoles...), h.CreateCategory)
		categories.PUT("/:id", middleware.RequireRole(managerRoles...), h.UpdateCategory)
		categories.DELETE("/:id", middleware.RequireRole(managerRoles...), h.DeleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("", middleware.RequireRole(anyRole...), h.ListProducts)
		products.GET("/barcode/:code", middleware.RequireRole(anyRole...), h.FindByBarcode)
		products.GET("/:id", middleware.RequireRole(anyRole...), h.GetProduct)
		products.POST("", middleware.RequireRole(managerRoles...), h.CreateProduct)
		products.PUT("/:id", middleware.RequireRole(managerRoles...), h.UpdateProduct)
		products.POST("/:id/deactivate", middleware.RequireRole(managerRoles...), h.DeactivateProduct)
	}
}

// ListCategories lists categories with their product counts
// @Summary      List categories
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]repository.CategoryRow}
// @Router       /api/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	rows, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// CreateCategory adds a category
// @Summary      Create category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CategoryRequest  true  "Category"
// @Success      201      {object}  response.Response{data=model.Category}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	category, err := h.catalogService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory renames or re-describes a category
// @Summary      Update category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                      true  "Category ID"
// @Param        payload  body      service.CategoryRequest  true  "Category"
// @Success      200      {object}  response.Response{data=model.Category}
// @Failure      404      {object}  response.Response
// @Router       /api/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory removes an unused category
// @Summary      Delete category
// @Description  Rejected while any product still belongs to the category
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// ListProducts handles retrieving paginated products with stock status
// @Summary      List products
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        search       query     string  false  "Name fragment or exact barcode"
// @Param        category_id  query     int     false  "Category filter"
// @Param        active       query     bool    false  "Only active products"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	categoryID, ok := optionalUint(c, "category_id")
	if !ok {
		return
	}
	products, total, err := h.catalogService.ListProducts(c.Request.Context(), service.ProductQuery{
		Search:     c.Query("search"),
		CategoryID: categoryID,
		ActiveOnly: c.Query("active") == "true",
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page(products, total, p)))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// FindByBarcode is the scanner lookup
// @Summary      Find product by barcode
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        code  path      string  true  "Barcode"
// @Success      200   {object}  response.Response{data=service.ProductResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/products/barcode/{code} [get]
func (h *CatalogHandler) FindByBarcode(c *gin.Context) {
	product, err := h.catalogService.FindByBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct creates a catalog entry and posts its opening stock
// @Summary      Create product
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Product"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.catalogService.CreateProduct(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct edits catalog fields; stock is only changed through movements
// @Summary      Update product
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Product"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeactivateProduct hides a product from sale
// @Summary      Deactivate product
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/deactivate [post]
func (h *CatalogHandler) DeactivateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.DeactivateProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
