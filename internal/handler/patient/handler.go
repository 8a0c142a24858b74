package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/handler"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/model"
	patientService "github.com/ivyhms/clinic-api/internal/service/patient"
)

type Handler struct {
	service *patientService.Service
}

func NewHandler(service *patientService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	patients := r.Group("/patients")
	{
		patients.POST("", auth.RequirePermission(model.PermCreatePatients), h.Create)
		patients.GET("", auth.RequirePermission(model.PermViewPatients), h.List)
		patients.GET("/:id", auth.RequirePermission(model.PermViewPatients), h.Get)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreatePatientRequest
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
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
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
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	page, err := h.service.List(c.Request.Context(), userID, handler.BindPagination(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}
