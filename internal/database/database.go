package database

import (
	"fmt"
	"time"

	"adslot-market/internal/config"
	"adslot-market/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// liveProposalIndex allows at most one active or in-progress proposal per slot
const liveProposalIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_proposals_one_live_per_slot
	ON proposals (slot_id) WHERE status IN ('active', 'in_progress')`

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string, log *zap.Logger) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established")
	return nil
}

// ConnectConfigured opens the database selected by DB_DRIVER
func ConnectConfigured(cfg *config.Config, log *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		return ConnectSQLite(cfg.Database.Path, log)
	}
	return Connect(cfg.GetDSN(), log)
}

// ConnectSQLite opens a local SQLite database file for development
func ConnectSQLite(path string, log *zap.Logger) error {
	var err error

	DB, err = OpenSQLite(path, logger.Default.LogMode(logger.Error))
	if err != nil {
		return err
	}

	log.Info("sqlite database opened", zap.String("path", path))
	return nil
}

// OpenSQLite opens path with a single connection so that writers serialize
// instead of failing with SQLITE_BUSY.
func OpenSQLite(path string, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)"), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// AutoMigrate runs automatic migrations for all models on the global connection
func AutoMigrate(log *zap.Logger) error {
	if err := Migrate(DB); err != nil {
		return err
	}
	log.Info("database migrations completed")
	return nil
}

// Migrate creates or updates the schema on db
func Migrate(db *gorm.DB) error {
	// Accounts first, slots and proposals reference them
	accountModels := []interface{}{
		&models.User{},
		&models.Page{},
		&models.Company{},
	}

	marketplaceModels := []interface{}{
		&models.Slot{},
		&models.Proposal{},
	}

	for _, group := range [][]interface{}{accountModels, marketplaceModels} {
		for _, model := range group {
			if err := db.AutoMigrate(model); err != nil {
				return fmt.Errorf("migration failed for %T: %w", model, err)
			}
		}
	}

	if err := db.Exec(liveProposalIndex).Error; err != nil {
		return fmt.Errorf("failed to create live proposal index: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
