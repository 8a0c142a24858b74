package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	p := Pagination{Page: 0, Size: -5}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Size)

	p = Pagination{Page: 3, Size: 25}
	p.Normalize()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 25, p.Size)
}

func TestPaginationOffset(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 1, Size: 10}.Offset())
	assert.Equal(t, 40, Pagination{Page: 5, Size: 10}.Offset())
}

func TestNewPagedResultNeverNilItems(t *testing.T) {
	page := NewPagedResult[string](nil, 5, Pagination{Page: 1000, Size: 10})
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, 1000, page.PageNumber)
	assert.Equal(t, 10, page.PageSize)
}
