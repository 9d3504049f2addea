package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewDomainErrorf("INSUFFICIENT_STOCK", "Insufficient stock for SKU %s", "S1")

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrEmptyCart))

	wrapped := fmt.Errorf("reserve: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInsufficientStock))

	var domainErr *DomainError
	assert.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, "Insufficient stock for SKU S1", domainErr.Message)
}

func TestFilter_Paging(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		offset int
		limit  int
	}{
		{name: "zero value", filter: Filter{}, offset: 0, limit: 20},
		{name: "third page", filter: Filter{Page: 3, PageSize: 10}, offset: 20, limit: 10},
		{name: "page size capped", filter: Filter{Page: 2, PageSize: 500}, offset: 100, limit: 100},
		{name: "negative page", filter: Filter{Page: -4, PageSize: 5}, offset: 0, limit: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, tt.filter.Offset())
			assert.Equal(t, tt.limit, tt.filter.Limit())
		})
	}
}
