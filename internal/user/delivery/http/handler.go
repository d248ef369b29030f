// Package http exposes the user service's REST API.
package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/digitlabs/pm-sys/internal/platform/apperr"
	"github.com/digitlabs/pm-sys/internal/platform/httpx"
	"github.com/digitlabs/pm-sys/internal/user/application"
)

// Handler wires the user use cases to gin.
type Handler struct {
	register *application.RegisterHandler
	login    *application.LoginHandler
	profile  *application.ProfileHandler
	password *application.PasswordHandler
	list     *application.ListUsersHandler
}

// NewHandler creates the Handler.
func NewHandler(
	register *application.RegisterHandler,
	login *application.LoginHandler,
	profile *application.ProfileHandler,
	password *application.PasswordHandler,
	list *application.ListUsersHandler,
) *Handler {
	return &Handler{
		register: register,
		login:    login,
		profile:  profile,
		password: password,
		list:     list,
	}
}

// Register mounts the routes on the router group.
func (h *Handler) Register(public, authed *gin.RouterGroup) {
	public.POST("/user/register", h.handleRegister)
	public.POST("/user/login", h.handleLogin)

	authed.GET("/user/info", h.handleGetInfo)
	authed.PUT("/user/info", h.handleUpdateInfo)
	authed.PUT("/user/password", h.handleChangePassword)
	authed.POST("/user/:userId/password/reset", h.handleResetPassword)
	authed.GET("/user/users", h.handleListUsers)
}

func requestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{
		TraceID: httpx.GetRequestID(c),
		IP:      c.ClientIP(),
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.register.Handle(c.Request.Context(), application.RegisterCommand{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Meta:     requestMeta(c),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}

	result, err := h.login.Handle(c.Request.Context(), application.LoginCommand{
		Username: req.Username,
		Password: req.Password,
		Meta:     requestMeta(c),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}

func (h *Handler) handleGetInfo(c *gin.Context) {
	profile, err := h.profile.Get(c.Request.Context(), httpx.CallerID(c))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, profile)
}

type updateInfoRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *Handler) handleUpdateInfo(c *gin.Context) {
	var req updateInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}

	profile, err := h.profile.Update(c.Request.Context(), application.UpdateCommand{
		UserID: httpx.CallerID(c),
		Email:  req.Email,
		Phone:  req.Phone,
		Meta:   requestMeta(c),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, profile)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (h *Handler) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, apperr.Validation("invalid request body"))
		return
	}

	err := h.password.Change(c.Request.Context(), application.ChangeCommand{
		UserID:      httpx.CallerID(c),
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
		Meta:        requestMeta(c),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OKMessage(c, "password changed")
}

func (h *Handler) handleResetPassword(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Error(c, apperr.Validation("invalid user id"))
		return
	}

	err = h.password.Reset(c.Request.Context(), application.ResetCommand{
		OperatorID:   httpx.CallerID(c),
		TargetUserID: targetID,
		Meta:         requestMeta(c),
	})
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, gin.H{"password": application.DefaultResetPassword})
}

func (h *Handler) handleListUsers(c *gin.Context) {
	raw := application.RawListQuery{
		Page:             c.Query("page"),
		Size:             c.Query("size"),
		Username:         c.Query("username"),
		Email:            c.Query("email"),
		Phone:            c.Query("phone"),
		GmtCreateStart:   c.Query("gmtCreateStart"),
		GmtCreateEnd:     c.Query("gmtCreateEnd"),
		GmtModifiedStart: c.Query("gmtModifiedStart"),
		GmtModifiedEnd:   c.Query("gmtModifiedEnd"),
		Sort:             c.Query("sort"),
	}

	result, err := h.list.Handle(c.Request.Context(), httpx.CallerID(c), raw)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	httpx.OK(c, result)
}
