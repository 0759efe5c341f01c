package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides application configuration and the tenant catalog.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewTenantHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPPort string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Warehouse  WarehouseConfig
	Generation GenerationConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
}

// WarehouseConfig locates the embedded warehouse and its exports.
type WarehouseConfig struct {
	Path      string
	ExportDir string
}

// GenerationConfig carries the default dataset shape.
type GenerationConfig struct {
	Seed             int64
	IDNCount         int
	ContractCount    int
	TransactionCount int
	ReferenceDate    string
}

type CacheConfig struct {
	TTLSeconds int
	MaxEntries int
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueryRate     float64
	QueryBurst    int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "copper"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPPort:     getenv("HTTP_PORT", "8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "copper"),
		DBUser:            getenv("DATABASE_USER", "copper"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 16),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Warehouse: WarehouseConfig{
			Path:      getenv("WAREHOUSE_PATH", "data/copper.db"),
			ExportDir: getenv("WAREHOUSE_EXPORT_DIR", "data/exports"),
		},
		Generation: GenerationConfig{
			Seed:             getenvInt64("GENERATION_SEED", 42),
			IDNCount:         getenvInt("GENERATION_IDNS", 60),
			ContractCount:    getenvInt("GENERATION_CONTRACTS", 150),
			TransactionCount: getenvInt("GENERATION_TRANSACTIONS", 30000),
			ReferenceDate:    getenv("GENERATION_REFERENCE_DATE", "2025-01-15"),
		},
		Cache: CacheConfig{
			TTLSeconds: getenvInt("QUERY_CACHE_TTL_SECONDS", 300),
			MaxEntries: getenvInt("QUERY_CACHE_MAX_ENTRIES", 512),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			QueryRate:     getenvFloat("RATE_LIMIT_QUERY_RATE", 25),
			QueryBurst:    getenvInt("RATE_LIMIT_QUERY_BURST", 50),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
