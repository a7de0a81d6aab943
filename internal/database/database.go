package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

// Connect opens a PostgreSQL connection with the given DSN.
func Connect(dsn string) (*DB, error) {
	return Open(postgres.Open(dsn))
}

// Open connects through an arbitrary gorm dialector. Tests use this with
// an in-memory SQLite database.
func Open(dialector gorm.Dialector) (*DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Migrate creates or updates all tables.
func (db *DB) Migrate() error {
	return db.AutoMigrate(
		&Listing{},
		&Run{},
		&Reveal{},
		&Profile{},
		&Alert{},
		&BillingEvent{},
	)
}
