// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"testing"

	"fin_flow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated in-memory database private to t. The pool holds a
// single connection, so code under test must not query the outer handle
// while a storage transaction is open.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	return db
}

// User inserts a user with the given role and returns its id
func User(t testing.TB, db *gorm.DB, name string, role domain.Role) uint {
	t.Helper()
	u := domain.User{Username: name, Password: "x", Role: role}
	require.NoError(t, db.Omit("Wallet").Create(&u).Error)
	return u.ID
}
