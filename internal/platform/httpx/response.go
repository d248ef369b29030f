// Package httpx provides the shared HTTP envelope and gin middleware
// used by every pm-sys service.
package httpx

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
)

// Response is the uniform envelope returned by every endpoint. Code is
// the HTTP status rendered as a string; Data is null on errors.
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// OK writes a 200 envelope with the given payload.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    strconv.Itoa(http.StatusOK),
		Message: "success",
		Data:    data,
	})
}

// OKMessage writes a 200 envelope with a custom message and no payload.
func OKMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    strconv.Itoa(http.StatusOK),
		Message: message,
		Data:    nil,
	})
}

// Error maps err onto the envelope and aborts the request. Internal
// causes are logged but never leaked to the caller.
func Error(c *gin.Context, err error) {
	appErr := apperr.From(err)
	status := appErr.StatusCode()

	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.FullPath()).
			Str("method", c.Request.Method).
			Msg("Request failed")
	}

	c.AbortWithStatusJSON(status, Response{
		Code:    strconv.Itoa(status),
		Message: appErr.Message,
		Data:    nil,
	})
}
