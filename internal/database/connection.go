// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heimly/heimly-backend/internal/config"
	"github.com/heimly/heimly-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error

	// TranslateError surfaces unique-constraint violations as
	// gorm.ErrDuplicatedKey, which the store maps to its conflict error.
	gormConfig := &gorm.Config{
		TranslateError: true,
	}
	if cfg.LogLevel == "silent" {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID generation
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.OwnerProfile{},
		&models.Listing{},
		&models.ListingPhoto{},
		&models.ListingDocument{},
		&models.VerificationRequest{},
		&models.AuditEntry{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	// The three partial unique indexes back the workflow invariants: one
	// primary photo per listing, one identity document registration, one
	// open verification request per listing. They must exist before the
	// application takes traffic; racing writers rely on them.
	required := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_listing_photos_primary
			ON listing_photos(listing_id) WHERE is_primary`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_owner_profiles_id_number
			ON owner_profiles(id_type, id_number) WHERE id_number <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_verification_requests_active
			ON verification_requests(listing_id) WHERE state IN ('pending', 'under_review')`,
	}
	for _, index := range required {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	optional := []string{
		"CREATE INDEX IF NOT EXISTS idx_listings_status_city ON listings(status, city)",
		"CREATE INDEX IF NOT EXISTS idx_listings_owner_status ON listings(owner_profile_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_verification_requests_listing_started ON verification_requests(listing_id, started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_entries_subject_created ON audit_entries(subject_type, subject_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_listings_search ON listings USING GIN(to_tsvector('english', title || ' ' || description))",
	}
	for _, index := range optional {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
		}
	}

	return nil
}

// SeedInitialData creates the first staff account when none exists.
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	var staffCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleStaff).Count(&staffCount)

	if staffCount == 0 {
		staff := &models.User{
			Username: "staff",
			Email:    "staff@heimly.com",
			Role:     models.UserRoleStaff,
			FullName: "Review Staff",
		}

		if err := staff.SetPassword("staff123!@#"); err != nil {
			return fmt.Errorf("failed to set staff password: %w", err)
		}

		if err := db.Create(staff).Error; err != nil {
			return fmt.Errorf("failed to create staff user: %w", err)
		}

		log.Println("Default staff user created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}
