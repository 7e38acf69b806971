package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

// Base is embedded by the domain repositories. It holds either the root
// connection or a transaction handle.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB binds ctx to the handle. A nil ctx returns the handle untouched.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

func (b Base) Raw() *gorm.DB {
	return b.db
}

// Paginate limits a query to the normalized page.
func Paginate(page pagination.Params) func(*gorm.DB) *gorm.DB {
	n := page.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n.PageSize).Offset(n.Offset())
	}
}

// FindPage counts the rows matched by filtered, then loads one page of them.
// filtered must be a fresh query each call since GORM statements are not
// reusable after Count; shape adds ordering and preloads to the page query.
func FindPage[T any](filtered func() *gorm.DB, page pagination.Params, shape func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []T{}
	if total == 0 {
		return rows, 0, nil
	}
	query := filtered().Scopes(Paginate(page))
	if shape != nil {
		query = shape(query)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
