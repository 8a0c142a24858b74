package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivyhms/clinic-api/internal/handler"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/model"
	rbacService "github.com/ivyhms/clinic-api/internal/service/rbac"
)

type Handler struct {
	service *rbacService.Service
}

func NewHandler(service *rbacService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	roles := r.Group("/roles")
	{
		roles.POST("", auth.RequirePermission(model.PermCreateRoles), h.CreateRole)
		roles.GET("", auth.RequirePermission(model.PermViewRoles), h.ListRoles)
		roles.GET("/:id", auth.RequirePermission(model.PermViewRoles), h.GetRole)
		roles.PUT("/:id", auth.RequirePermission(model.PermUpdateRoles), h.UpdateRole)
		roles.DELETE("/:id", auth.RequirePermission(model.PermDeleteRoles), h.DeleteRole)
		roles.PUT("/:id/permissions", auth.RequirePermission(model.PermManageRolePermissions), h.AssignPermissions)
		roles.DELETE("/:id/permissions/:permissionId", auth.RequirePermission(model.PermManageRolePermissions), h.RemovePermission)
	}

	permissions := r.Group("/permissions")
	{
		permissions.POST("", auth.RequirePermission(model.PermCreatePermissions), h.CreatePermission)
		permissions.GET("", auth.RequirePermission(model.PermViewPermissions), h.ListPermissions)
		permissions.GET("/:id", auth.RequirePermission(model.PermViewPermissions), h.GetPermission)
		permissions.PUT("/:id", auth.RequirePermission(model.PermUpdatePermissions), h.UpdatePermission)
		permissions.DELETE("/:id", auth.RequirePermission(model.PermDeletePermissions), h.DeletePermission)
	}

	users := r.Group("/users")
	{
		users.GET("/:id/access", auth.RequirePermission(model.PermManageUsers), h.GetUserAccess)
	}
}

func (h *Handler) CreateRole(c *gin.Context) {
	var req model.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detail, err := h.service.CreateRole(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(detail))
}

func (h *Handler) GetRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	detail, err := h.service.GetRole(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) UpdateRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	var req model.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	detail, err := h.service.UpdateRole(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) DeleteRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	if err := h.service.DeleteRole(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListRoles(c *gin.Context) {
	page, err := h.service.ListRoles(c.Request.Context(), handler.BindPagination(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

func (h *Handler) AssignPermissions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}

	var req model.AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.AssignPermissions(c.Request.Context(), id, req.PermissionIDs); err != nil {
		c.Error(err)
		return
	}

	detail, err := h.service.GetRole(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) RemovePermission(c *gin.Context) {
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid role ID"))
		return
	}
	permissionID, err := uuid.Parse(c.Param("permissionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid permission ID"))
		return
	}

	if err := h.service.RemovePermissionFromRole(c.Request.Context(), roleID, permissionID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreatePermission(c *gin.Context) {
	var req model.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	permission, err := h.service.CreatePermission(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(permission))
}

func (h *Handler) GetPermission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid permission ID"))
		return
	}

	permission, err := h.service.GetPermission(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(permission))
}

func (h *Handler) UpdatePermission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid permission ID"))
		return
	}

	var req model.CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	permission, err := h.service.UpdatePermission(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(permission))
}

func (h *Handler) DeletePermission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid permission ID"))
		return
	}

	if err := h.service.DeletePermission(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListPermissions(c *gin.Context) {
	page, err := h.service.ListPermissions(c.Request.Context(), handler.BindPagination(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

func (h *Handler) GetUserAccess(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	info, err := h.service.GetUserRoleInfo(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(info))
}
