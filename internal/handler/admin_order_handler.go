package handler

import (
	"net/http"
	"time"

	"github.com/rs-labo46/ecshop/internal/config"
	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/middleware"
	"github.com/rs-labo46/ecshop/internal/repository"
	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	auth := middleware.AuthJWT(cfg.JWTSecret)
	adminOnly := middleware.AdminRoleGuard()

	e.PUT("/orders/:id/status", h.updateStatus, auth, adminOnly)

	admin := e.Group("/admin")
	admin.Use(auth, adminOnly)
	admin.GET("/audit-logs", h.auditLogs)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	// 操作した管理者（監査ログ用）
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), actor, orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}

	f := repository.AuditLogFilter{Limit: limit, Offset: offset}

	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if f.ResourceID, ok = queryInt64Ptr(c, "resource_id"); !ok {
		return badRequest(c, "invalid resource_id")
	}
	if f.ActorUserID, ok = queryInt64Ptr(c, "actor_user_id"); !ok {
		return badRequest(c, "invalid actor_user_id")
	}

	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid from")
		}
		f.CreatedFrom = &tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "invalid to")
		}
		f.CreatedTo = &tm
	}

	out, err := h.uc.ListAuditLogs(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
