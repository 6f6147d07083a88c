package model

// AutoMigrate の対象
func All() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&CartItem{},
		&Order{},
		&OrderLine{},
		&InventoryAdjustment{},
		&AuditLog{},
	}
}
