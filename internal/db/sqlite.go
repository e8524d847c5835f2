package db

import (
	"errors"

	"backend-bikecomp/internal/config"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNoSQLitePath = errors.New("sqlite path is empty")

// ConnectSQLite opens the local ride database file, creating it if needed.
func ConnectSQLite(cfg config.Config) (*gorm.DB, error) {
	if cfg.SQLitePath == "" {
		return nil, ErrNoSQLitePath
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}
