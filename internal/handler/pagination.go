package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ivyhms/clinic-api/internal/model"
)

// BindPagination reads page and size query parameters. Out-of-range values
// are clamped downstream, never rejected.
func BindPagination(c *gin.Context) model.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	p := model.Pagination{Page: page, Size: size}
	p.Normalize()
	return p
}
