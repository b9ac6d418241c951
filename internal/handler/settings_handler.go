package handler

import (
	"net/http"

	"construction-pos/internal/middleware"
	"construction-pos/internal/service"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService service.SettingsService
}

func NewSettingsHandler(settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) RegisterRoutes(api *gin.RouterGroup) {
	settings := api.Group("/settings")
	{
		settings.GET("", middleware.RequireRole(anyRole...), h.GetSettings)
		settings.PUT("/:key", middleware.RequireRole(adminRole...), h.UpdateSetting)
	}
}

// GetSettings returns every shop setting
// @Summary      Get settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=map[string]string}
// @Router       /api/settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	all, err := h.settingsService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, all))
}

// UpdateSetting writes one setting
// @Summary      Update setting
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        key      path      string                        true  "Setting key, e.g. tax_rate"
// @Param        payload  body      service.UpdateSettingRequest  true  "Value"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/settings/{key} [put]
func (h *SettingsHandler) UpdateSetting(c *gin.Context) {
	var req service.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.settingsService.Set(c.Request.Context(), c.Param("key"), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{c.Param("key"): req.Value}))
}
