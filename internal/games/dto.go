package games

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamehub/gamehub-backend/pkg/db/models"
)

// Filter narrows catalog listings.
type Filter struct {
	Search      string
	CategoryID  *int64
	DeveloperID *int64
	OnlyActive  bool
}

type CreateGameInput struct {
	Title       string          `json:"title" validate:"notblank,max=200"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	ReleaseDate *time.Time      `json:"release_date,omitempty"`
	Description *string         `json:"description,omitempty"`
	ImagePath   *string         `json:"image_path,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	DeveloperID *int64          `json:"developer_id,omitempty"`
}

// UpdateGameInput replaces every editable field of a game. A nil IsActive
// keeps the current flag.
type UpdateGameInput struct {
	Title       string          `json:"title" validate:"notblank,max=200"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	ReleaseDate *time.Time      `json:"release_date,omitempty"`
	Description *string         `json:"description,omitempty"`
	ImagePath   *string         `json:"image_path,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	DeveloperID *int64          `json:"developer_id,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// DeleteResult reports whether a game row was removed or only archived
// because purchase history still points at it.
type DeleteResult struct {
	ID       int64 `json:"id"`
	Archived bool  `json:"archived"`
}

// Usage counts the rows that reference a game.
type Usage struct {
	ActiveRegistrations int64
	Claims              int64
	Details             int64
}

type UpdatePriceInput struct {
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

type GameDTO struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Price             decimal.Decimal `json:"price"`
	ReleaseDate       *time.Time      `json:"release_date,omitempty"`
	Description       *string         `json:"description,omitempty"`
	ImagePath         *string         `json:"image_path,omitempty"`
	RegistrationCount int             `json:"registration_count"`
	CategoryID        *int64          `json:"category_id,omitempty"`
	CategoryName      *string         `json:"category_name,omitempty"`
	DeveloperID       *int64          `json:"developer_id,omitempty"`
	DeveloperName     *string         `json:"developer_name,omitempty"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
}

func FromModel(g models.Game) GameDTO {
	dto := GameDTO{
		ID:                g.ID,
		Title:             g.Title,
		Price:             g.Price,
		ReleaseDate:       g.ReleaseDate,
		Description:       g.Description,
		ImagePath:         g.ImagePath,
		RegistrationCount: g.RegistrationCount,
		CategoryID:        g.CategoryID,
		DeveloperID:       g.DeveloperID,
		IsActive:          g.IsActive,
		CreatedAt:         g.CreatedAt,
	}
	if g.Category != nil {
		name := g.Category.CategoryName
		dto.CategoryName = &name
	}
	if g.Developer != nil {
		name := g.Developer.DeveloperName
		dto.DeveloperName = &name
	}
	return dto
}
