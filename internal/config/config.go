package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings read from the environment.
type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret     string
	AdminUsername string
	AdminPassword string

	PhoneRegion string
	CORSOrigins []string

	OTLPEndpoint string
	ServiceName  string
}

// Load reads configs/.env when present and falls back to defaults for anything unset.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load("configs/.env") == nil

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", "127.0.0.1:8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:          getEnv("DB_DSN", "file:construction_pos.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminUsername:  getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "admin123"),
		PhoneRegion:    strings.ToUpper(getEnv("PHONE_REGION", "CM")),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "construction-pos"),
	}
	return cfg, envLoaded
}

// IsProduction reports whether the process runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
