package confs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	DBDriver          string
	DBURL             string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret     string
	JWTTTL        time.Duration
	AdminUsername string
	AdminPassword string

	CacheDriver string
	CacheTTL    time.Duration
	RedisURL    string

	MQTTBrokerURL string
	MQTTClientID  string
	MQTTTopic     string
}

// LoadConfig loads environment variables from a .env file if present
// and builds a validated Config from them.
func LoadConfig() (Config, error) {
	// Load .env if it exists; a missing file is not an error at runtime
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	appEnv := getEnv("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := ParseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	driver := getEnv("DB_DRIVER", "postgres")
	switch driver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: postgres, sqlite)", driver)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 100)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return Config{}, err
	}
	lifetime, err := getDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	ttl, err := getDuration("JWT_TTL", 300*time.Second)
	if err != nil {
		return Config{}, err
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("invalid JWT_TTL %s (must be positive)", ttl)
	}

	cacheDriver := getEnv("CACHE_DRIVER", "memory")
	switch cacheDriver {
	case "memory", "redis", "none":
	default:
		return Config{}, fmt.Errorf("invalid CACHE_DRIVER %q (allowed: memory, redis, none)", cacheDriver)
	}
	cacheTTL, err := getDuration("CACHE_TTL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	redisURL := getEnv("REDIS_URL", "")
	if cacheDriver == "redis" && redisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required when CACHE_DRIVER=redis")
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		HTTPAddr:          getEnv("HTTP_ADDR", "0.0.0.0:3536"),
		DBDriver:          driver,
		DBURL:             getEnv("DB_URL", ""),
		DBHost:            getEnv("DB_HOST", ""),
		DBPort:            getEnv("DB_PORT", ""),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", ""),
		SQLitePath:        getEnv("SQLITE_PATH", "weather.db"),
		DBMaxOpenConns:    maxOpen,
		DBMaxIdleConns:    maxIdle,
		DBConnMaxLifetime: lifetime,
		JWTSecret:         secret,
		JWTTTL:            ttl,
		AdminUsername:     getEnv("ADMIN_USERNAME", ""),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		CacheDriver:       cacheDriver,
		CacheTTL:          cacheTTL,
		RedisURL:          redisURL,
		MQTTBrokerURL:     getEnv("MQTT_BROKER_URL", ""),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "weather-server"),
		MQTTTopic:         getEnv("MQTT_TOPIC", "weather/+/+"),
	}, nil
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}
