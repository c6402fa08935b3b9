package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Colony    ColonyConfig
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StoreConfig selects the persistence backend. The memory driver keeps
// everything in process and exists for development and tests.
type StoreConfig struct {
	Driver string // "postgres" or "memory"
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret          string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// ColonyConfig covers the simulation's operational knobs: the internal
// tick cadence, the shared secret guarding system endpoints, the initial
// RNG seed, and the optional balance override file.
type ColonyConfig struct {
	TickInterval time.Duration // 0 disables the internal ticker
	TickToken    string
	Seed         int64
	BalancePath  string
	OnlineWindow time.Duration
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config := load()

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() *Config {
	return &Config{
		Server:    loadServerConfig(),
		Store:     loadStoreConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Session:   loadSessionConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Colony:    loadColonyConfig(),
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(getEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		URL:          getEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Driver: getEnv("STORE_DRIVER", "postgres"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnv("DB_PORT", "5432"),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		Name:            getEnv("DB_NAME", "clowder"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadRedisConfig() RedisConfig {
	enabled := getEnv("REDIS_ENABLED", "true") == "true"
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      getEnv("REDIS_URL", ""),
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadSessionConfig() SessionConfig {
	tokenExpiration, _ := strconv.Atoi(getEnv("SESSION_EXPIRATION_HOURS", "720"))

	environment := getEnv("ENVIRONMENT", "development")
	cookieSecure := environment == "production"

	return SessionConfig{
		Secret:          getEnv("SESSION_SECRET", ""),
		TokenExpiration: time.Duration(tokenExpiration) * time.Hour,
		CookieSecure:    cookieSecure,
		CookieSameSite:  getEnv("COOKIE_SAME_SITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: getEnv("CORS_DEBUG", "") == "true",
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := getEnv("ENVIRONMENT", "development")

	return LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "debug"),
		JSONFormat: environment == "production",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := getEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(getEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "25"), 64)
	burstSize, _ := strconv.Atoi(getEnv("RATE_LIMIT_BURST_SIZE", "50"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
	}
}

func loadColonyConfig() ColonyConfig {
	tickInterval, _ := strconv.Atoi(getEnv("TICK_INTERVAL_SECONDS", "10"))
	seed, _ := strconv.ParseInt(getEnv("COLONY_SEED", "1"), 10, 64)
	onlineWindow, _ := strconv.Atoi(getEnv("ONLINE_WINDOW_SECONDS", "60"))

	return ColonyConfig{
		TickInterval: time.Duration(tickInterval) * time.Second,
		TickToken:    getEnv("TICK_TOKEN", ""),
		Seed:         seed,
		BalancePath:  getEnv("BALANCE_PATH", ""),
		OnlineWindow: time.Duration(onlineWindow) * time.Second,
	}
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Store.Driver != "postgres" && c.Store.Driver != "memory" {
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.Store.Driver)
	}

	if c.Store.Driver == "postgres" {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}

	if c.Server.Environment == "production" && c.Colony.TickToken == "" {
		return fmt.Errorf("TICK_TOKEN is required in production")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
