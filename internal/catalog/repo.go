package catalog

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/internal/repo"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

// Repository persists developers and game categories.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) FindDeveloper(ctx context.Context, id int64) (*models.Developer, error) {
	var dev models.Developer
	if err := r.DB(ctx).First(&dev, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dev, nil
}

func (r *Repository) ListDevelopers(ctx context.Context, filter Filter, page pagination.Params) ([]models.Developer, int64, error) {
	filtered := func() *gorm.DB {
		return applyFilter(r.DB(ctx).Model(&models.Developer{}), "developer_name", filter)
	}
	return repo.FindPage[models.Developer](filtered, page, byName("developer_name"))
}

// CreateDeveloper names its columns so an explicit is_active=false is not
// replaced by the column default.
func (r *Repository) CreateDeveloper(ctx context.Context, dev *models.Developer) error {
	return r.DB(ctx).
		Select("developer_name", "website", "is_active", "created_at", "updated_at").
		Create(dev).Error
}

func (r *Repository) UpdateDeveloper(ctx context.Context, id int64, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Developer{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteDeveloper detaches the developer from its remaining games before
// removing the row.
func (r *Repository) DeleteDeveloper(ctx context.Context, id int64) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Game{}).
			Where("developer_id = ?", id).
			UpdateColumn("developer_id", nil).Error
		if err != nil {
			return err
		}
		return tx.Delete(&models.Developer{}, "id = ?", id).Error
	})
}

func (r *Repository) FindCategory(ctx context.Context, id int64) (*models.GameCategory, error) {
	var cat models.GameCategory
	if err := r.DB(ctx).First(&cat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *Repository) ListCategories(ctx context.Context, filter Filter, page pagination.Params) ([]models.GameCategory, int64, error) {
	filtered := func() *gorm.DB {
		return applyFilter(r.DB(ctx).Model(&models.GameCategory{}), "category_name", filter)
	}
	return repo.FindPage[models.GameCategory](filtered, page, byName("category_name"))
}

func (r *Repository) CreateCategory(ctx context.Context, cat *models.GameCategory) error {
	return r.DB(ctx).
		Select("category_name", "description", "is_active", "created_at", "updated_at").
		Create(cat).Error
}

func (r *Repository) UpdateCategory(ctx context.Context, id int64, fields map[string]any) error {
	return r.DB(ctx).Model(&models.GameCategory{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	return r.DB(ctx).Delete(&models.GameCategory{}, "id = ?", id).Error
}

// CountGames counts games pointing at column = id, optionally active ones only.
func (r *Repository) CountGames(ctx context.Context, column string, id int64, onlyActive bool) (int64, error) {
	query := r.DB(ctx).Model(&models.Game{}).Where(column+" = ?", id)
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var n int64
	err := query.Count(&n).Error
	return n, err
}

func applyFilter(query *gorm.DB, column string, filter Filter) *gorm.DB {
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		query = query.Where("LOWER("+column+") LIKE ?", "%"+term+"%")
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	return query
}

func byName(column string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Order(column + " ASC").Order("id ASC")
	}
}
