package models

import (
	"time"

	"github.com/gamehub/gamehub-backend/pkg/enums"
)

// User is the login identity; players and admins both start here.
type User struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string         `gorm:"column:email;size:255;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;size:20;not null;default:'player'"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	JoinDate     time.Time      `gorm:"column:join_date;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
