package database

import (
	"os"
	"path/filepath"

	"github.com/cptrack/cptrack/internal/database/models"
	"go.uber.org/zap"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Init(dsn string) (*gorm.DB, error) {
	if _, err := os.Stat(dsn); os.IsNotExist(err) {
		zap.S().Infof("database file not found at '%s', creating directory for it.", dsn)
		dbDir := filepath.Dir(dsn)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto migrate schema
	err = db.AutoMigrate(
		&models.User{},
		&models.PlatformProfile{},
		&models.Problem{},
		&models.Submission{},
		&models.ContestParticipation{},
		&models.ActivityCacheEntry{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
