package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivyhms/clinic-api/internal/handler"
	"github.com/ivyhms/clinic-api/internal/model"
	authService "github.com/ivyhms/clinic-api/internal/service/auth"
)

type Handler struct {
	service *authService.Service
}

func NewHandler(service *authService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the unauthenticated endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)
	}
}

// RegisterProtectedRoutes mounts the administrative endpoints; the caller
// wraps the group with authentication and permission checks.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/reset-password", h.ResetPassword)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	summary, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(summary))
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse("password updated"))
}
