package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/handler"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/model"
	appointmentService "github.com/ivyhms/clinic-api/internal/service/appointment"
)

type Handler struct {
	service *appointmentService.Service
}

func NewHandler(service *appointmentService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("/request", auth.RequirePermission(model.PermCreateAppointments), h.Request)
		appointments.POST("", auth.RequirePermission(model.PermBookAppointments), h.Book)
		appointments.POST("/:id/accept", auth.RequirePermission(model.PermUpdateAppointments), h.Accept)
		appointments.POST("/:id/confirm", auth.RequirePermission(model.PermConfirmAppointments), h.Confirm)
		appointments.PUT("/:id", auth.RequirePermission(model.PermUpdateAppointments), h.Update)
		appointments.POST("/:id/cancel", auth.RequirePermission(model.PermUpdateAppointments), h.Cancel)
		appointments.POST("/:id/complete", auth.RequirePermission(model.PermUpdateAppointments), h.Complete)
		appointments.GET("/:id", auth.RequirePermission(model.PermViewAppointments), h.Get)
		appointments.GET("", auth.RequirePermission(model.PermViewAppointments), h.List)
	}
}

// Request opens the staged flow for the authenticated patient.
func (h *Handler) Request(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	var req model.RequestAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patientID, err := h.service.PatientIDFor(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	detail, err := h.service.RequestByPatient(c.Request.Context(), patientID, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(detail))
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detail, err := h.service.BookByStaff(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(detail))
}

func (h *Handler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.AcceptAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detail, err := h.service.AcceptByStaff(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) Confirm(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.ConfirmAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patientID, err := h.service.PatientIDFor(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	detail, err := h.service.ConfirmByPatient(c.Request.Context(), id, patientID, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detail, err := h.service.UpdateDetails(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detail, err := h.service.Cancel(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	detail, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	detail, err := h.service.GetDetail(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
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
