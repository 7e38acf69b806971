package catalog

import (
	"time"

	"github.com/gamehub/gamehub-backend/pkg/db/models"
)

// Filter narrows developer and category listings by name.
type Filter struct {
	Search     string
	OnlyActive bool
}

// DeveloperInput replaces the editable fields of a developer. A nil IsActive
// keeps the current flag on update and means active on create.
type DeveloperInput struct {
	DeveloperName string  `json:"developer_name" validate:"notblank,max=150"`
	Website       *string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type CategoryInput struct {
	CategoryName string  `json:"category_name" validate:"notblank,max=100"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type DeveloperDTO struct {
	ID            int64     `json:"id"`
	DeveloperName string    `json:"developer_name"`
	Website       *string   `json:"website,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CategoryDTO struct {
	ID           int64     `json:"id"`
	CategoryName string    `json:"category_name"`
	Description  *string   `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func DeveloperFromModel(d models.Developer) DeveloperDTO {
	return DeveloperDTO{
		ID:            d.ID,
		DeveloperName: d.DeveloperName,
		Website:       d.Website,
		IsActive:      d.IsActive,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func CategoryFromModel(c models.GameCategory) CategoryDTO {
	return CategoryDTO{
		ID:           c.ID,
		CategoryName: c.CategoryName,
		Description:  c.Description,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
