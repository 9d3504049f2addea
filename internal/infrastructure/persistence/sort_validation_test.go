package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortSpec_OrderBy(t *testing.T) {
	tests := []struct {
		name     string
		key, dir string
		column   string
		desc     bool
	}{
		{"defaults to code ascending", "", "", "code", false},
		{"known key", "product_name", "", "product_name", false},
		{"alias", "available", "desc", "available_quantity", true},
		{"direction is case insensitive", "created_at", " DESC ", "created_at", true},
		{"unknown direction keeps default", "code", "sideways", "code", false},
		{"unknown key falls back", "price", "desc", "code", true},
		{"keys are case sensitive", "CODE", "", "code", false},
		{"statement in key", "code; DROP TABLE sku_stocks;--", "", "code", false},
		{"statement in direction", "code", "asc; DELETE FROM orders", "code", false},
		{"subquery in key", "(SELECT 1)", "asc", "code", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := skuSort.orderBy(tt.key, tt.dir)
			assert.Equal(t, tt.column, got.Column.Name)
			assert.Equal(t, tt.desc, got.Desc)
		})
	}
}

func TestSortSpec_DefaultDescending(t *testing.T) {
	spec := sortSpec{columns: map[string]string{"confirmed_at": "confirmed_at"}, defaultKey: "confirmed_at", defaultDesc: true}
	assert.True(t, spec.orderBy("", "").Desc)
	assert.False(t, spec.orderBy("", "asc").Desc)
}
