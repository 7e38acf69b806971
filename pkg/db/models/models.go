package models

// All lists every persisted model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Player{},
		&GameCategory{},
		&Developer{},
		&Game{},
		&Cart{},
		&CartItem{},
		&GameRegistration{},
		&GameRegistrationDetail{},
		&Payment{},
		&GameClaim{},
	}
}
