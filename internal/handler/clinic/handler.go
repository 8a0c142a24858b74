package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/handler"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/model"
	clinicService "github.com/ivyhms/clinic-api/internal/service/clinic"
)

type Handler struct {
	service *clinicService.Service
}

func NewHandler(service *clinicService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	clinics := r.Group("/clinics")
	{
		clinics.POST("", auth.RequirePermission(model.PermCreateClinics), h.Create)
		clinics.GET("", auth.RequirePermission(model.PermViewClinics), h.List)
		clinics.GET("/:id", auth.RequirePermission(model.PermViewClinics), h.Get)
		clinics.PUT("/:id", auth.RequirePermission(model.PermUpdateClinics), h.Update)
		clinics.POST("/:id/employees", auth.RequirePermission(model.PermManageUsers), h.CreateEmployee)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateClinicRequest
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
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinic ID"))
		return
	}

	summary, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinic ID"))
		return
	}

	var req model.UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	summary, err := h.service.Update(c.Request.Context(), id, &req)
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

func (h *Handler) CreateEmployee(c *gin.Context) {
	clinicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinic ID"))
		return
	}

	var req model.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	req.ClinicID = clinicID

	employee, err := h.service.CreateEmployee(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(employee))
}
