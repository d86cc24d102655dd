// Package db wraps storage-engine connectivity shared by both processes.
package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens a gorm handle backed by sqlite at path, ready for
// AutoMigrate by each context's repository.
func Connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; a wide pool only adds lock-contention churn.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
