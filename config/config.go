package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wbsdickson/bpsp-portal-sub002/models"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTRefreshSecret string
	LogLevel         string
	Environment      string

	// IssuanceCronSpec is when the scheduler driver ticks; default daily.
	IssuanceCronSpec string
	// RetryThreshold is how many consecutive materialization failures
	// auto-disable a schedule.
	RetryThreshold int
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:             os.Getenv("PORT"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", "dev-secret"),
		JWTRefreshSecret: getEnvOrDefault("JWT_REFRESH_SECRET", "dev-refresh-secret"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		Environment:      getEnvOrDefault("ENVIRONMENT", "development"),
		IssuanceCronSpec: getEnvOrDefault("ISSUANCE_CRON_SPEC", "0 6 * * *"),
	}

	thresholdStr := getEnvOrDefault("ISSUANCE_RETRY_THRESHOLD", "3")
	threshold, err := strconv.Atoi(thresholdStr)
	if err != nil || threshold < 1 {
		return nil, fmt.Errorf("invalid ISSUANCE_RETRY_THRESHOLD %q", thresholdStr)
	}
	cfg.RetryThreshold = threshold

	return cfg, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// AutoMigrate creates or updates all tables. Shared with tests, which
// run it against an in-memory sqlite database.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.TaxRate{},
		&models.Item{},
		&models.Template{},
		&models.TemplateLine{},
		&models.Schedule{},
		&models.Invoice{},
		&models.InvoiceLine{},
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
