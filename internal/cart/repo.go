package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/internal/repo"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// FindByPlayer loads the player's cart without items.
func (r *Repository) FindByPlayer(ctx context.Context, playerID int64) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB(ctx).Where("player_id = ?", playerID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate returns the player's cart, creating it on first use. A concurrent
// creator losing the unique race reloads the winner's row.
func (r *Repository) GetOrCreate(ctx context.Context, playerID int64) (*models.Cart, error) {
	cart, err := r.FindByPlayer(ctx, playerID)
	if err == nil {
		return cart, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}
	cart = &models.Cart{PlayerID: playerID}
	if err := r.DB(ctx).Create(cart).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.FindByPlayer(ctx, playerID)
		}
		return nil, err
	}
	return cart, nil
}

func (r *Repository) AddItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *Repository) HasItem(ctx context.Context, cartID, gameID int64) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND game_id = ?", cartID, gameID).
		Count(&count).Error
	return count > 0, err
}

// RemoveItem deletes one game from the cart and reports whether a row existed.
func (r *Repository) RemoveItem(ctx context.Context, cartID, gameID int64) (bool, error) {
	res := r.DB(ctx).Where("cart_id = ? AND game_id = ?", cartID, gameID).Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// ClearItems removes every item and returns how many were deleted.
func (r *Repository) ClearItems(ctx context.Context, cartID int64) (int64, error) {
	res := r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteItems removes the listed item ids, scoped to the cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID int64, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Where("cart_id = ? AND id IN ?", cartID, itemIDs).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// ListAllItems returns every item with its game, oldest first, for checkout.
func (r *Repository) ListAllItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB(ctx).
		Preload("Game").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// ListItems returns one page of items, newest first.
func (r *Repository) ListItems(ctx context.Context, cartID int64, page pagination.Params) ([]models.CartItem, int64, error) {
	filtered := func() *gorm.DB {
		return r.DB(ctx).Model(&models.CartItem{}).Where("cart_id = ?", cartID)
	}
	return repo.FindPage[models.CartItem](filtered, page, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Game").Order("created_at DESC").Order("id DESC")
	})
}
