// Package dbtest opens isolated in-memory databases for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
)

// Open returns a migrated sqlite client scoped to the running test. A single
// connection keeps transactions serialized the same way row locks would.
func Open(t *testing.T) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db.NewFromGorm(conn, config.DBDriverSQLite)
}

// MustCreate inserts each record or fails the test.
func MustCreate(t *testing.T, conn *gorm.DB, records ...any) {
	t.Helper()
	for _, rec := range records {
		if err := conn.Create(rec).Error; err != nil {
			t.Fatalf("seed %T: %v", rec, err)
		}
	}
}
