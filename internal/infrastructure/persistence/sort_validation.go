package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortSpec maps client-visible sort keys to columns. Keys outside the map
// fall back to the default, so request input never reaches ORDER BY text.
type sortSpec struct {
	columns     map[string]string
	defaultKey  string
	defaultDesc bool
}

// orderBy resolves key and dir ("asc" or "desc", any case) to an ORDER BY
// column. An empty or unknown dir keeps the default direction of the
// resolved key's spec.
func (s sortSpec) orderBy(key, dir string) clause.OrderByColumn {
	column, ok := s.columns[strings.TrimSpace(key)]
	if !ok {
		column = s.columns[s.defaultKey]
	}
	desc := s.defaultDesc
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc":
		desc = false
	case "desc":
		desc = true
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}
}

// skuSort orders inventory listings, by code ascending unless asked otherwise
var skuSort = sortSpec{
	columns: map[string]string{
		"code":               "code",
		"product_name":       "product_name",
		"available_quantity": "available_quantity",
		"available":          "available_quantity",
		"created_at":         "created_at",
		"updated_at":         "updated_at",
	},
	defaultKey: "code",
}
