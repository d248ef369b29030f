// Package http exposes the permission service's REST API. The
// /internal routes are consumed by sibling services only and are to be
// shielded from external traffic at the network layer.
package http

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/digitlabs/pm-sys/internal/permission/application"
	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/httpx"
)

// Handler wires the permission service to gin.
type Handler struct {
	service *application.Service
}

// NewHandler creates the Handler.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the routes.
func (h *Handler) Register(internal, authed *gin.RouterGroup) {
	internal.POST("/internal/roles/bind-default", h.handleBindDefault)
	internal.POST("/internal/roles/bind-super-admin", h.handleBindSuperAdmin)
	internal.GET("/internal/users/:userId/role", h.handleGetUserRole)
	internal.GET("/internal/users/ids", h.handleGetUserIDs)

	authed.GET("/permission/roles", h.handleListRoles)
	authed.POST("/permission/upgrade", h.handleUpgrade)
	authed.POST("/permission/downgrade", h.handleDowngrade)
}

type bindRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

func (h *Handler) handleBindDefault(c *gin.Context) {
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}
	if err := h.service.BindDefaultRole(c.Request.Context(), req.UserID); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMessage(c, "role bound")
}

func (h *Handler) handleBindSuperAdmin(c *gin.Context) {
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}
	if err := h.service.BindSuperAdmin(c.Request.Context(), req.UserID); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMessage(c, "super admin bound")
}

func (h *Handler) handleGetUserRole(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Error(c, apperr.Validation("invalid user id"))
		return
	}

	role, err := h.service.GetUserRole(c.Request.Context(), userID)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, gin.H{"role": role})
}

func (h *Handler) handleGetUserIDs(c *gin.Context) {
	raw := c.Query("roles")
	codes := []string{}
	for _, code := range strings.Split(raw, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}

	ids, err := h.service.GetUserIDsByRoles(c.Request.Context(), codes)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, gin.H{"userIds": ids})
}

func (h *Handler) handleListRoles(c *gin.Context) {
	list, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		httpx.Error(c, err)
		return
	}

	type roleView struct {
		RoleID int64  `json:"roleId"`
		Code   string `json:"code"`
		Name   string `json:"name"`
	}
	views := make([]roleView, 0, len(list))
	for _, role := range list {
		views = append(views, roleView{RoleID: role.RoleID, Code: role.Code, Name: role.Name})
	}
	httpx.OK(c, gin.H{"roles": views})
}

type transitionRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

func (h *Handler) handleUpgrade(c *gin.Context) {
	h.handleTransition(c, h.service.Upgrade)
}

func (h *Handler) handleDowngrade(c *gin.Context) {
	h.handleTransition(c, h.service.Downgrade)
}

func (h *Handler) handleTransition(c *gin.Context, op func(ctx context.Context, operatorID, targetID int64, meta application.RequestMeta) error) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}

	meta := application.RequestMeta{
		TraceID: httpx.GetRequestID(c),
		IP:      c.ClientIP(),
	}
	if err := op(c.Request.Context(), httpx.CallerID(c), req.UserID, meta); err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMessage(c, "role updated")
}
