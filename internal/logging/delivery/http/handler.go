// Package http exposes the logging service's REST API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/digitlabs/pm-sys/internal/logging/application"
	"github.com/digitlabs/pm-sys/internal/platform/httpx"
)

// Handler wires the log listing to gin.
type Handler struct {
	list *application.ListLogsHandler
}

// NewHandler creates the Handler.
func NewHandler(list *application.ListLogsHandler) *Handler {
	return &Handler{list: list}
}

// Register mounts the routes.
func (h *Handler) Register(authed *gin.RouterGroup) {
	authed.GET("/logging/logs", h.handleListLogs)
}

func (h *Handler) handleListLogs(c *gin.Context) {
	raw := application.RawLogQuery{
		Page:   c.Query("page"),
		Size:   c.Query("size"),
		UserID: c.Query("userId"),
		Action: c.Query("action"),
		From:   c.Query("from"),
		To:     c.Query("to"),
	}

	result, err := h.list.Handle(c.Request.Context(), httpx.CallerID(c), raw)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}
