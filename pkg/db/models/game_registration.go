package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameRegistration is one purchase by one player. It becomes active only once
// its payment succeeds.
type GameRegistration struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID         int64           `gorm:"column:player_id;not null;index"`
	RegistrationDate time.Time       `gorm:"column:registration_date;not null;index"`
	PurchasePrice    decimal.Decimal `gorm:"column:purchase_price;type:numeric(18,2);not null"`
	IsActive         bool            `gorm:"column:is_active;not null;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Player  *Player                  `gorm:"foreignKey:PlayerID"`
	Details []GameRegistrationDetail `gorm:"foreignKey:RegistrationID"`
	Payment *Payment                 `gorm:"foreignKey:RegistrationID"`
}

// GameRegistrationDetail is a line item; Price is frozen at purchase time.
type GameRegistrationDetail struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RegistrationID int64           `gorm:"column:registration_id;not null;uniqueIndex:ux_registration_details_registration_game"`
	GameID         int64           `gorm:"column:game_id;not null;uniqueIndex:ux_registration_details_registration_game;index"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(18,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`

	Game *Game `gorm:"foreignKey:GameID"`
}
