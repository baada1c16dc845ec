package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Store     StoreConfig
	Engine    EngineConfig
	Analytics AnalyticsConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type EngineConfig struct {
	Workers              int
	PrecomputeInterval   time.Duration
	PopularityInterval   time.Duration
	PopularityWindowDays int
	DefaultLimit         int
	RunOnStartup         bool
	// Shops restricts the periodic passes; empty means every known shop.
	Shops []string
}

type AnalyticsConfig struct {
	// Sink is "redis", "postgres" or "none".
	Sink             string
	StreamKey        string
	StreamMaxLen     int64
	WriteTimeout     time.Duration
	BreakerFailures  uint32
	BreakerOpenAfter time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Nova Recommendations"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", ""),
			Name:        getEnv("DB_NAME", "nova_recommendations"),
			SSLMode:     getEnv("DB_SSL_MODE", "disable"),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		Engine: EngineConfig{
			Workers:              getEnvInt("PRECOMPUTE_WORKERS", 4),
			PrecomputeInterval:   getEnvDuration("PRECOMPUTE_INTERVAL", 6*time.Hour),
			PopularityInterval:   getEnvDuration("POPULARITY_INTERVAL", time.Hour),
			PopularityWindowDays: getEnvInt("POPULARITY_WINDOW_DAYS", 30),
			DefaultLimit:         getEnvInt("RECOMMEND_DEFAULT_LIMIT", 5),
			RunOnStartup:         getEnvBool("ENGINE_RUN_ON_STARTUP", false),
			Shops:                getEnvList("ENGINE_SHOPS"),
		},
		Analytics: AnalyticsConfig{
			Sink:             getEnv("ANALYTICS_SINK", "redis"),
			StreamKey:        getEnv("ANALYTICS_STREAM_KEY", "reco:requests"),
			StreamMaxLen:     int64(getEnvInt("ANALYTICS_STREAM_MAXLEN", 100000)),
			WriteTimeout:     getEnvDuration("ANALYTICS_WRITE_TIMEOUT", 2*time.Second),
			BreakerFailures:  uint32(getEnvInt("ANALYTICS_BREAKER_FAILURES", 5)),
			BreakerOpenAfter: getEnvDuration("ANALYTICS_BREAKER_TIMEOUT", 30*time.Second),
		},
	}

	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Database.Password == "" {
			return nil, errors.New("missing database password")
		}
	case "memory":
	default:
		return nil, errors.New("unknown store driver: " + cfg.Store.Driver)
	}

	switch cfg.Analytics.Sink {
	case "redis", "none":
	case "postgres":
		if cfg.Store.Driver != "postgres" {
			return nil, errors.New("postgres analytics sink requires the postgres store driver")
		}
	default:
		return nil, errors.New("unknown analytics sink: " + cfg.Analytics.Sink)
	}

	if cfg.Engine.Workers <= 0 {
		cfg.Engine.Workers = 1
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}

	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}

	return defaultVal
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
