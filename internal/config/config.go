package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config carries everything the API process needs at startup. Values come
// from an optional TOML file plus environment variables; env wins.
type Config struct {
	ServiceHost string
	ServicePort int
	Database    DatabaseConfig
	SMTP        SMTPConfig
	JWT         JWTConfig
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Enabled  bool
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

// New loads configuration from config.toml (if present) and the environment.
func New() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Info("no config file found, using environment and defaults")
	}

	cfg := &Config{
		ServiceHost: viper.GetString("service_host"),
		ServicePort: viper.GetInt("service_port"),
		Database: DatabaseConfig{
			Host:     viper.GetString("db_host"),
			Port:     viper.GetString("db_port"),
			User:     viper.GetString("db_user"),
			Password: viper.GetString("db_password"),
			Name:     viper.GetString("db_name"),
			SSLMode:  viper.GetString("db_sslmode"),
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("smtp_host"),
			Port:     viper.GetInt("smtp_port"),
			User:     viper.GetString("smtp_user"),
			Password: viper.GetString("smtp_password"),
			From:     viper.GetString("smtp_from"),
		},
		JWT: JWTConfig{
			Secret:    viper.GetString("jwt_secret"),
			ExpiresIn: 24 * time.Hour,
		},
		CORSOrigins: viper.GetStringSlice("cors_origins"),
	}
	cfg.SMTP.Enabled = cfg.SMTP.Host != ""

	if cfg.JWT.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		cfg.JWT.Secret = "serviceease_dev_secret" // development fallback only
	}

	log.Info("config parsed")
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("service_host", "")
	viper.SetDefault("service_port", 8080)
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", "5432")
	viper.SetDefault("db_user", "postgres")
	viper.SetDefault("db_password", "postgres")
	viper.SetDefault("db_name", "serviceease")
	viper.SetDefault("db_sslmode", "disable")
	viper.SetDefault("smtp_port", 587)
	viper.SetDefault("cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
}
