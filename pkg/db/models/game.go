package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game is a catalog entry. RegistrationCount only moves on confirmed payments.
type Game struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Title             string          `gorm:"column:title;size:200;not null"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(18,2);not null"`
	ReleaseDate       *time.Time      `gorm:"column:release_date"`
	Description       *string         `gorm:"column:description"`
	ImagePath         *string         `gorm:"column:image_path"`
	RegistrationCount int             `gorm:"column:registration_count;not null;default:0"`
	DeveloperID       *int64          `gorm:"column:developer_id;index"`
	CategoryID        *int64          `gorm:"column:category_id;index"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Developer *Developer    `gorm:"foreignKey:DeveloperID"`
	Category  *GameCategory `gorm:"foreignKey:CategoryID"`
}

type GameCategory struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CategoryName string    `gorm:"column:category_name;size:100;not null;uniqueIndex"`
	Description  *string   `gorm:"column:description"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type Developer struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DeveloperName string    `gorm:"column:developer_name;size:150;not null;uniqueIndex"`
	Website       *string   `gorm:"column:website"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
