package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/handler"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/model"
	doctorService "github.com/ivyhms/clinic-api/internal/service/doctor"
)

type Handler struct {
	service *doctorService.Service
}

func NewHandler(service *doctorService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	doctors := r.Group("/doctors")
	{
		doctors.POST("", auth.RequirePermission(model.PermCreateDoctors), h.Create)
		doctors.GET("", auth.RequirePermission(model.PermViewDoctors), h.List)
		doctors.GET("/:id", auth.RequirePermission(model.PermViewDoctors), h.Get)
		doctors.GET("/:id/clinics", auth.RequirePermission(model.PermViewDoctors), h.ListClinics)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	summary, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(summary))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	summary, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) List(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), handler.BindPagination(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

func (h *Handler) ListClinics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor ID"))
		return
	}

	clinics, err := h.service.ListClinics(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinics))
}
