package models

import "time"

// Cart holds a player's unpurchased selections; one per player.
type Cart struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID  int64     `gorm:"column:player_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Items []CartItem `gorm:"foreignKey:CartID"`
}
