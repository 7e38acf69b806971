package games

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/internal/repo"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

// Repository persists catalog rows.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// FindByID loads a game with its category and developer.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Game, error) {
	var game models.Game
	err := r.DB(ctx).
		Preload("Category").
		Preload("Developer").
		First(&game, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// FindByIDs returns the games for ids keyed by id; missing ids are absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Game, error) {
	out := make(map[int64]models.Game, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Game
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, g := range rows {
		out[g.ID] = g
	}
	return out, nil
}

// List applies the filter and returns one page plus the total count.
func (r *Repository) List(ctx context.Context, filter Filter, page pagination.Params) ([]models.Game, int64, error) {
	filtered := func() *gorm.DB {
		return applyFilter(r.DB(ctx).Model(&models.Game{}), filter)
	}
	return repo.FindPage[models.Game](filtered, page, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Category").Preload("Developer").Order("created_at DESC").Order("id DESC")
	})
}

func applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.DeveloperID != nil {
		query = query.Where("developer_id = ?", *filter.DeveloperID)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	return query
}

func (r *Repository) Create(ctx context.Context, game *models.Game) error {
	return r.DB(ctx).Create(game).Error
}

func (r *Repository) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (int64, error) {
	res := r.DB(ctx).Model(&models.Game{}).Where("id = ?", id).Update("price", price)
	return res.RowsAffected, res.Error
}

// Update writes fields onto the game row. Callers check existence first since
// some drivers report zero affected rows for a no-op update.
func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) error {
	return r.DB(ctx).Model(&models.Game{}).Where("id = ?", id).Updates(fields).Error
}

// Usage counts registrations and claims that still reference the game.
func (r *Repository) Usage(ctx context.Context, id int64) (Usage, error) {
	var usage Usage
	conn := r.DB(ctx)
	err := conn.Model(&models.GameRegistrationDetail{}).
		Joins("JOIN game_registrations ON game_registrations.id = game_registration_details.registration_id").
		Where("game_registration_details.game_id = ? AND game_registrations.is_active = ?", id, true).
		Count(&usage.ActiveRegistrations).Error
	if err != nil {
		return Usage{}, err
	}
	if err := conn.Model(&models.GameClaim{}).Where("game_id = ?", id).Count(&usage.Claims).Error; err != nil {
		return Usage{}, err
	}
	if err := conn.Model(&models.GameRegistrationDetail{}).Where("game_id = ?", id).Count(&usage.Details).Error; err != nil {
		return Usage{}, err
	}
	return usage, nil
}

// Delete removes the game and any cart lines holding it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Game{}, "id = ?", id).Error
	})
}

// IncrementRegistrationCounts adds one to every listed game.
func (r *Repository) IncrementRegistrationCounts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.Game{}).
		Where("id IN ?", ids).
		UpdateColumn("registration_count", gorm.Expr("registration_count + ?", 1)).Error
}

func (r *Repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.GameCategory{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) DeveloperExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Developer{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
