package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения
type Config struct {
	Service  ServiceConfig
	Autonomy AutonomyConfig
	Telegram TelegramConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig

	PolicyPath string
}

// ServiceConfig подключение к сервису гардрейлов и исполнения
type ServiceConfig struct {
	BaseURL        string
	UserID         string
	Timeout        time.Duration
	RequestsPerSec float64
	RequestBurst   int
	MarketCacheTTL time.Duration
}

// AutonomyConfig параметры оркестратора
type AutonomyConfig struct {
	AutonomyInterval time.Duration
	BriefingInterval time.Duration
	BriefingEnabled  bool
	ListenTimeout    time.Duration
	SpeechMinVisual  time.Duration
	VoiceEnabled     bool
	AccountEquity    float64
	DefaultPair      string
	Language         string
}

type TelegramConfig struct {
	BotToken  string
	Admins    string
	Whitelist string
	RateLimit float64
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load загружает конфигурацию из .env файла и окружения
func Load() (*Config, error) {
	// Загружаем .env файл (если есть)
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	timeout, err := time.ParseDuration(getEnv("SERVICE_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_TIMEOUT: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("SERVICE_RATE_LIMIT", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_RATE_LIMIT: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("SERVICE_RATE_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_RATE_BURST: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("MARKET_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid MARKET_CACHE_TTL: %w", err)
	}

	autonomyInterval, err := time.ParseDuration(getEnv("AUTONOMY_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTONOMY_INTERVAL: %w", err)
	}

	briefingInterval, err := time.ParseDuration(getEnv("BRIEFING_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BRIEFING_INTERVAL: %w", err)
	}

	briefingEnabled, err := strconv.ParseBool(getEnv("BRIEFING_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid BRIEFING_ENABLED: %w", err)
	}

	listenTimeout, err := time.ParseDuration(getEnv("LISTEN_TIMEOUT", "12s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LISTEN_TIMEOUT: %w", err)
	}

	minVisual, err := time.ParseDuration(getEnv("SPEECH_MIN_VISUAL", "900ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid SPEECH_MIN_VISUAL: %w", err)
	}

	voiceEnabled, err := strconv.ParseBool(getEnv("VOICE_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_ENABLED: %w", err)
	}

	equity, err := strconv.ParseFloat(getEnv("ACCOUNT_EQUITY", "10000"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCOUNT_EQUITY: %w", err)
	}

	tgRate, err := strconv.ParseFloat(getEnv("TG_RATE_LIMIT", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TG_RATE_LIMIT: %w", err)
	}

	dbEnabled, err := strconv.ParseBool(getEnv("DB_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_ENABLED: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	serverPort, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	logMaxSize, err := strconv.Atoi(getEnv("LOG_MAX_SIZE_MB", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_MAX_SIZE_MB: %w", err)
	}

	config := &Config{
		Service: ServiceConfig{
			BaseURL:        strings.TrimRight(getEnv("SERVICE_BASE_URL", "http://localhost:8000"), "/"),
			UserID:         getEnv("SERVICE_USER_ID", "demo-user"),
			Timeout:        timeout,
			RequestsPerSec: rps,
			RequestBurst:   burst,
			MarketCacheTTL: cacheTTL,
		},
		Autonomy: AutonomyConfig{
			AutonomyInterval: autonomyInterval,
			BriefingInterval: briefingInterval,
			BriefingEnabled:  briefingEnabled,
			ListenTimeout:    listenTimeout,
			SpeechMinVisual:  minVisual,
			VoiceEnabled:     voiceEnabled,
			AccountEquity:    equity,
			DefaultPair:      getEnv("DEFAULT_PAIR", "EUR/USD"),
			Language:         getEnv("DEFAULT_LANG", "en"),
		},
		Telegram: TelegramConfig{
			BotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
			Admins:    getEnv("TG_ADMINS", ""),
			Whitelist: getEnv("TG_CHAT_WHITELIST", ""),
			RateLimit: tgRate,
		},
		Database: DatabaseConfig{
			Enabled:         dbEnabled,
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "fx_copilot"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxLifetime: connMaxLifetime,
		},
		Server: ServerConfig{
			Port: serverPort,
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  logMaxSize,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		PolicyPath: getEnv("POLICY_PATH", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate проверяет обязательные поля конфигурации
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("SERVICE_BASE_URL is required")
	}
	if c.Service.UserID == "" {
		return fmt.Errorf("SERVICE_USER_ID is required")
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("SERVICE_TIMEOUT must be positive")
	}
	if c.Service.RequestsPerSec <= 0 {
		return fmt.Errorf("SERVICE_RATE_LIMIT must be positive")
	}
	if c.Autonomy.AutonomyInterval < time.Second {
		return fmt.Errorf("AUTONOMY_INTERVAL must be at least 1s")
	}
	if c.Autonomy.ListenTimeout <= 0 {
		return fmt.Errorf("LISTEN_TIMEOUT must be positive")
	}
	if c.Autonomy.AccountEquity <= 0 {
		return fmt.Errorf("ACCOUNT_EQUITY must be positive")
	}
	if lang := c.Autonomy.Language; lang != "en" && lang != "ru" {
		return fmt.Errorf("DEFAULT_LANG must be en or ru, got %q", lang)
	}
	if c.Database.Enabled && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when DB_ENABLED=true")
	}
	return nil
}

// DSN строка подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
