package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type PaymentConfig struct {
	APIKey       string
	APIURL       string
	WebhookToken string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
	UseSSL    bool
}

type Config struct {
	App struct {
		Port string
	}
	Postgres PostgresConfig
	Payment  PaymentConfig
	Storage  StorageConfig
}

// Load reads configuration from the environment. When path is non-empty the
// env file at that path is loaded first; a missing file is not an error so
// the same binary runs in containers without one.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getenv("APP_PORT", "8080")

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = getenv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = getenv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getenv("DB_MIGRATIONS_PATH", "migrations")

	cfg.Payment.APIKey = os.Getenv("XENDIT_API_KEY")
	cfg.Payment.APIURL = getenv("XENDIT_API_URL", "https://api.xendit.co")
	cfg.Payment.WebhookToken = os.Getenv("XENDIT_WEBHOOK_TOKEN")

	cfg.Storage.Endpoint = os.Getenv("STORAGE_ENDPOINT")
	cfg.Storage.AccessKey = os.Getenv("STORAGE_ACCESS_KEY")
	cfg.Storage.SecretKey = os.Getenv("STORAGE_SECRET_KEY")
	cfg.Storage.PublicURL = os.Getenv("STORAGE_PUBLIC_URL")
	cfg.Storage.UseSSL = os.Getenv("STORAGE_USE_SSL") == "true"

	required := map[string]string{
		"DB_HOST":              cfg.Postgres.Host,
		"DB_USER":              cfg.Postgres.User,
		"DB_PASSWORD":          cfg.Postgres.Password,
		"DB_NAME":              cfg.Postgres.DBName,
		"XENDIT_WEBHOOK_TOKEN": cfg.Payment.WebhookToken,
	}
	for name, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
