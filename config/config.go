package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	Telegram        Telegram
	Redis           Redis
	API             API
	Cache           Cache
	Session         Session
	Jobs            Jobs
	GoogleDrive     GoogleDrive
	HoldingsPerPage int `env:"HOLDINGS_PER_PAGE" envDefault:"5"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN,notEmpty"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"52428800"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug     bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout   time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	AssetsApi AssetsApi
}

type AssetsApi struct {
	Url string `env:"ASSETS_API_URL" envDefault:"http://localhost:8080"`
}

type Cache struct {
	FundSearchExpiration time.Duration `env:"CACHE_FUND_SEARCH_EXPIRATION" envDefault:"10m"`
}

type Session struct {
	Expiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"24h"`
}

type Jobs struct {
	DeleteOldFilesInterval time.Duration `env:"DELETE_OLD_FILES_JOB_INTERVAL" envDefault:"1h"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

// Load parses the environment. Fields without a default are required.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	if cfg.GoogleDrive.Enabled && cfg.GoogleDrive.CredentialsFile == "" {
		return nil, fmt.Errorf("GOOGLE_DRIVE_CREDENTIALS_FILE is required when GOOGLE_DRIVE_ENABLED is set")
	}

	return cfg, nil
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
