package models

import "time"

// CartItem references a game inside a cart; (cart_id, game_id) is unique.
type CartItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CartID    int64     `gorm:"column:cart_id;not null;uniqueIndex:ux_cart_items_cart_game"`
	GameID    int64     `gorm:"column:game_id;not null;uniqueIndex:ux_cart_items_cart_game"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	Game *Game `gorm:"foreignKey:GameID"`
}
