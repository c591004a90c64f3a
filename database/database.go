package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealflow-api/internal/domain/billing"
	"dealflow-api/internal/domain/listings"
	"dealflow-api/internal/domain/users"
)

// Models lists every table this service migrates.
func Models() []any {
	return []any{
		// collaborator-owned, read here
		&users.User{},
		&listings.BusinessListing{},
		&listings.InvestorProfile{},

		// billing
		&billing.CustomerMapping{},
		&billing.Subscription{},
		&billing.EvaluationPurchase{},
		&billing.Payment{},
		&billing.WebhookEvent{},
	}
}

// InitDB connects to Postgres and migrates all models.
func InitDB(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	log.Info().Int("models", len(Models())).Msg("database connected and migrated")
	return db, nil
}
