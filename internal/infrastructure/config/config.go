package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 HTTP API 及外部相依的執行設定。
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Auth    AuthConfig    `yaml:"auth"`
	Cleanup CleanupConfig `yaml:"cleanup"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type AuthConfig struct {
	Secret                  string        `yaml:"secret"`
	TokenTTL                time.Duration `yaml:"token_ttl"`
	RefreshTTL              time.Duration `yaml:"refresh_ttl"`
	SessionTimeout          time.Duration `yaml:"session_timeout"`
	MaxSessionsPerUser      int           `yaml:"max_sessions_per_user"`
	MaxRefreshTokensPerUser int           `yaml:"max_refresh_tokens_per_user"`
}

type CleanupConfig struct {
	TokenInterval   time.Duration `yaml:"token_interval"`
	SessionInterval time.Duration `yaml:"session_interval"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "dev-secret-change-me"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 30 * time.Minute
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = 24 * time.Hour * 7
	}
	if cfg.Auth.SessionTimeout == 0 {
		cfg.Auth.SessionTimeout = 30 * time.Minute
	}
	if cfg.Auth.MaxSessionsPerUser == 0 {
		cfg.Auth.MaxSessionsPerUser = 3
	}
	if cfg.Auth.MaxRefreshTokensPerUser == 0 {
		cfg.Auth.MaxRefreshTokensPerUser = 5
	}
	if cfg.Cleanup.TokenInterval == 0 {
		cfg.Cleanup.TokenInterval = time.Hour
	}
	if cfg.Cleanup.SessionInterval == 0 {
		cfg.Cleanup.SessionInterval = 30 * time.Minute
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("AUTH_TOKEN_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}
	if val := os.Getenv("AUTH_REFRESH_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.RefreshTTL = d
		}
	}
	if val := os.Getenv("AUTH_SESSION_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.SessionTimeout = d
		}
	}
	if val := os.Getenv("AUTH_MAX_SESSIONS_PER_USER"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Auth.MaxSessionsPerUser = n
		}
	}
	if val := os.Getenv("AUTH_MAX_REFRESH_TOKENS_PER_USER"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Auth.MaxRefreshTokensPerUser = n
		}
	}
	if val := os.Getenv("CLEANUP_TOKEN_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cleanup.TokenInterval = d
		}
	}
	if val := os.Getenv("CLEANUP_SESSION_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cleanup.SessionInterval = d
		}
	}
	return cfg
}
