package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const (
	SessionStoreRedis  = "redis"
	SessionStoreCookie = "cookie"
)

const (
	AlarmPolicyExact   = "exact"
	AlarmPolicyCatchUp = "catch-up"
)

type Config struct {
	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBPath     string `mapstructure:"db_path"`

	SessionStore  string `mapstructure:"session_store"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	SessionSecret string `mapstructure:"session_secret"`

	GinMode    string `mapstructure:"gin_mode"`
	ServerAddr string `mapstructure:"server_addr"`

	OpenAIAPIKey string `mapstructure:"openai_api_key"`

	TelegramAPIBase           string        `mapstructure:"telegram_api_base"`
	TelegramWebhookSecretHash string        `mapstructure:"telegram_webhook_secret_hash"`
	NotifyTimeout             time.Duration `mapstructure:"notify_timeout"`

	TickInterval    time.Duration `mapstructure:"tick_interval"`
	StaggerDelay    time.Duration `mapstructure:"stagger_delay"`
	ChainStartDelay time.Duration `mapstructure:"chain_start_delay"`
	AlarmPolicy     string        `mapstructure:"alarm_policy"`
	Timezone        string        `mapstructure:"timezone"`
	WelcomeTask     bool          `mapstructure:"welcome_task"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		DBDriver:        DriverMySQL,
		DBHost:          "localhost",
		DBPort:          "3306",
		DBUser:          "taskuser",
		DBPassword:      "taskpassword",
		DBName:          "task_management",
		DBPath:          "chainboard.db",
		SessionStore:    SessionStoreRedis,
		RedisHost:       "localhost",
		RedisPort:       "6379",
		SessionSecret:   "default-secret-key-change-me",
		GinMode:         "debug",
		ServerAddr:      ":8080",
		TelegramAPIBase: "https://api.telegram.org",
		NotifyTimeout:   10 * time.Second,
		TickInterval:    time.Second,
		StaggerDelay:    time.Second,
		ChainStartDelay: 500 * time.Millisecond,
		AlarmPolicy:     AlarmPolicyExact,
		Timezone:        "Local",
		WelcomeTask:     true,
	}
}

// Load reads the configuration from the environment
func Load() *Config {
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile overlays a YAML file on the defaults, then the environment.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// Location resolves the configured timezone, falling back to local time
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, using local time: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

func applyEnv(cfg *Config) {
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.SessionStore = getEnv("SESSION_STORE", cfg.SessionStore)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.TelegramAPIBase = getEnv("TELEGRAM_API_BASE", cfg.TelegramAPIBase)
	cfg.TelegramWebhookSecretHash = getEnv("TELEGRAM_WEBHOOK_SECRET_HASH", cfg.TelegramWebhookSecretHash)
	cfg.NotifyTimeout = getDurationEnv("NOTIFY_TIMEOUT", cfg.NotifyTimeout)
	cfg.TickInterval = getDurationEnv("TICK_INTERVAL", cfg.TickInterval)
	cfg.StaggerDelay = getDurationEnv("STAGGER_DELAY", cfg.StaggerDelay)
	cfg.ChainStartDelay = getDurationEnv("CHAIN_START_DELAY", cfg.ChainStartDelay)
	cfg.AlarmPolicy = getEnv("ALARM_POLICY", cfg.AlarmPolicy)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.WelcomeTask = getBoolEnv("WELCOME_TASK", cfg.WelcomeTask)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Ignoring invalid %s=%q", key, value)
		return defaultValue
	}
	return d
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Ignoring invalid %s=%q", key, value)
		return defaultValue
	}
	return b
}
