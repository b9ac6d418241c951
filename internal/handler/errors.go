package handler

import (
	"errors"
	"net/http"

	"construction-pos/internal/model"
	"construction-pos/internal/service"
	"construction-pos/pkg/pagination"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

var (
	anyRole      = []string{model.RoleAdmin, model.RoleManager, model.RoleCashier}
	managerRoles = []string{model.RoleAdmin, model.RoleManager}
	adminRole    = []string{model.RoleAdmin}
)

func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindReferenceNotFound:
		return http.StatusNotFound
	case service.KindInsufficientStock, service.KindConflict, service.KindCreditLimit:
		return http.StatusConflict
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service error onto the response envelope. Storage
// failures keep their cause out of the body.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var kinded service.KindedError
	if !errors.As(err, &kinded) {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
		return
	}

	status := statusFor(kinded.Kind())
	msg := kinded.Error()
	fields := kinded.Details()
	if kinded.Kind() == service.KindPersistence {
		msg = "The operation failed and was rolled back"
		fields = nil
	}
	c.JSON(status, response.Detailed(status, msg, string(kinded.Kind()), fields))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Detailed(http.StatusBadRequest, msg, string(service.KindValidation), nil))
}

// idParam reads a positive numeric path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, ok := pagination.UintParam(c.Param(name))
	if !ok {
		badRequest(c, "Invalid "+name)
	}
	return id, ok
}

// optionalUint reads an optional numeric query parameter.
func optionalUint(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, ok := pagination.UintParam(raw)
	if !ok {
		badRequest(c, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

func page(items interface{}, total int64, p pagination.Params) response.Page {
	return response.Page{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}
