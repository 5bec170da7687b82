package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Port string
		// AllowNegativeStock keeps the stock decrement on order
		// placement unconditional, letting quantities go below zero.
		AllowNegativeStock bool
	}
	Postgres struct {
		Host           string
		Port           string
		User           string
		Password       string
		DBName         string
		SSLMode        string
		MigrationsPath string
	}
	SMTP struct {
		Host     string
		Port     string
		From     string
		Password string
		Enabled  bool
	}
}

func Load(path string) (*Config, error) {
	if path != "" {
		err := godotenv.Load(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = os.Getenv("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if v := os.Getenv("ALLOW_NEGATIVE_STOCK"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOW_NEGATIVE_STOCK value %q: %w", v, err)
		}
		cfg.App.AllowNegativeStock = allow
	}

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	if cfg.Postgres.Host == "" {
		log.Fatalf("DB_HOST is required")
	}
	cfg.Postgres.Port = os.Getenv("DB_PORT")
	if cfg.Postgres.Port == "" {
		log.Fatalf("DB_PORT is required")
	}
	cfg.Postgres.User = os.Getenv("DB_USER")
	if cfg.Postgres.User == "" {
		log.Fatalf("DB_USER is required")
	}
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	if cfg.Postgres.Password == "" {
		log.Fatalf("DB_PASSWORD is required")
	}
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	if cfg.Postgres.DBName == "" {
		log.Fatalf("DB_NAME is required")
	}
	cfg.Postgres.SSLMode = os.Getenv("DB_SSLMODE")
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	cfg.Postgres.MigrationsPath = os.Getenv("DB_MIGRATIONS_PATH")
	if cfg.Postgres.MigrationsPath == "" {
		cfg.Postgres.MigrationsPath = "migrations"
	}

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.Port = os.Getenv("SMTP_PORT")
	if cfg.SMTP.Port == "" {
		cfg.SMTP.Port = "587"
	}
	cfg.SMTP.From = os.Getenv("SMTP_FROM")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.Enabled = cfg.SMTP.Host != "" && cfg.SMTP.From != ""

	return cfg, nil
}
