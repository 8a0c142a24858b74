package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all persisted entities
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Pagination represents common pagination parameters. Pages are 1-indexed.
type Pagination struct {
	Page int `json:"page" form:"page"`
	Size int `json:"size" form:"size"`
}

// Normalize clamps page and size to positive defaults.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}

// PagedResult is the list envelope returned by every paged query.
// An out-of-range page yields empty Items with the true TotalCount.
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	PageNumber int   `json:"page_number"`
	PageSize   int   `json:"page_size"`
}

func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PagedResult[T]{
		Items:      items,
		TotalCount: total,
		PageNumber: p.Page,
		PageSize:   p.Size,
	}
}
