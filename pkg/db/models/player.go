package models

import "time"

// Player is the storefront profile attached 1:1 to a user.
type Player struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64      `gorm:"column:user_id;not null;uniqueIndex"`
	Username   string     `gorm:"column:username;size:100;not null;uniqueIndex"`
	AvatarPath *string    `gorm:"column:avatar_path"`
	LastLogin  *time.Time `gorm:"column:last_login"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID"`
}
