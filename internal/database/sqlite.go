package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/tcg-signals/internal/models"
)

var DB *gorm.DB

// Initialize opens the SQLite database at dbPath for the server process,
// migrates the schema and runs the data migrations.
func Initialize(dbPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	if err := RunMigrations(db); err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to dbPath and migrates the schema without touching the
// package-level handle. Tests use it with ":memory:" or a temp file.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	zap.L().Info("database connected", zap.String("path", dbPath))

	if err := db.AutoMigrate(&models.CardIdentity{}, &models.DatasetRun{}, &models.DatasetRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	zap.L().Info("database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
