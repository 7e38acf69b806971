package models

import "time"

// GameClaim reserves (player, game) while a registration for it is pending or
// paid. The composite primary key is what rejects concurrent duplicate buys.
type GameClaim struct {
	PlayerID       int64     `gorm:"column:player_id;primaryKey;autoIncrement:false"`
	GameID         int64     `gorm:"column:game_id;primaryKey;autoIncrement:false"`
	RegistrationID int64     `gorm:"column:registration_id;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
