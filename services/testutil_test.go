package services

import (
	"testing"

	"bearpay-waitlist/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory sqlite database with the same
// TranslateError setting the service uses against Postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps every session on the same in-memory DB
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.WaitlistEntry{},
		&models.AirdropAllocation{},
		&models.AirdropQueueItem{},
	))
	return db
}

func newTestWaitlistService(t *testing.T) *WaitlistService {
	t.Helper()
	return &WaitlistService{DB: newTestDB(t), BaseURL: "https://bearpay.test"}
}
