// Package store opens and migrates the plateful database.
package store

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plateful/plateful/models"
)

// Open returns a gorm handle on the sqlite database at path.
func Open(path string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate keeps the schema in sync with the model structs.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.SavedRecipe{}, &models.AuthAccount{})
}
