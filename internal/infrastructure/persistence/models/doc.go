// Package models holds the GORM row types of the storefront schema and
// their conversions to and from domain types. Foreign keys are plain
// columns; no model declares a GORM association, so repositories load
// related rows explicitly.
package models

// All returns every persistence model in dependency order. It is used by
// tests and local tooling that build the schema with AutoMigrate; production
// schemas come from the SQL migrations.
func All() []any {
	return []any{
		&SKUStockModel{},
		&SKUPriceModel{},
		&ShoppingSessionModel{},
		&CartItemModel{},
		&ReservationModel{},
		&CheckoutModel{},
		&OrderModel{},
		&OrderLineModel{},
	}
}
