package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

type ctxKey struct{}

type row struct {
	ID   int64
	Kind string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&row{}))
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	require.Same(t, db, base.Raw())

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx.Statement)
	require.Equal(t, ctx, withCtx.Statement.Context)

	require.Same(t, db, base.DB(nil))
}

func TestFindPage(t *testing.T) {
	db := newTestDB(t)
	for i := 1; i <= 7; i++ {
		kind := "odd"
		if i%2 == 0 {
			kind = "even"
		}
		require.NoError(t, db.Create(&row{ID: int64(i), Kind: kind}).Error)
	}
	odd := func() *gorm.DB { return db.Model(&row{}).Where("kind = ?", "odd") }
	newestFirst := func(q *gorm.DB) *gorm.DB { return q.Order("id DESC") }

	rows, total, err := FindPage[row](odd, pagination.Params{Page: 2, PageSize: 3}, newestFirst)
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, rows, 1)
	require.EqualValues(t, 1, rows[0].ID)

	none := func() *gorm.DB { return db.Model(&row{}).Where("kind = ?", "none") }
	rows, total, err = FindPage[row](none, pagination.Params{}, nil)
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}
