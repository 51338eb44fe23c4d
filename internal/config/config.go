package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env   string `yaml:"env"`
	Port  int    `yaml:"port"`
	DBURL string `yaml:"databaseUrl"`

	DBMaxConns int `yaml:"dbMaxConns"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`

	SupabaseURL       string `yaml:"supabaseUrl"`
	SupabaseAnonKey   string `yaml:"supabaseAnonKey"`
	SupabaseJWTSecret string `yaml:"supabaseJwtSecret"`

	// promoted to ADMIN on startup when the row exists
	AdminEmail string `yaml:"adminEmail"`

	AllowedOrigins []string `yaml:"allowedOrigins"`

	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
	// OTEL_TRACES_SAMPLER_ARG; 1 keeps every trace
	TraceSampleRatio float64 `yaml:"traceSampleRatio"`

	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`

	WorkerConcurrency int `yaml:"workerConcurrency"`
	WorkerPollMS      int `yaml:"workerPollMs"`
}

func defaults() Config {
	return Config{
		Env:               "dev",
		Port:              8080,
		DBMaxConns:        5,
		RedisAddr:         "127.0.0.1:6379",
		AllowedOrigins:    []string{"http://localhost:3000"},
		ServiceName:       "cohorthub-api",
		TraceSampleRatio:  1,
		RateLimitRPS:      10,
		RateLimitBurst:    20,
		WorkerConcurrency: 4,
		WorkerPollMS:      250,
	}
}

// Load reads .env, then the optional yaml file, then the process environment.
// Later sources win.
func Load() Config {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := defaults()

	path := getEnv("CONFIG_FILE", "config.yaml")

	if err := loadFile(path, &cfg); err != nil {
		fmt.Println("config file:", err)
	}

	applyEnv(&cfg)

	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL()
	}

	return cfg
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	return yaml.Unmarshal(b, cfg)
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.DBURL = getEnv("DATABASE_URL", cfg.DBURL)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	cfg.SupabaseURL = strings.TrimRight(getEnv("SUPABASE_URL", cfg.SupabaseURL), "/")
	cfg.SupabaseAnonKey = getEnv("SUPABASE_ANON_KEY", cfg.SupabaseAnonKey)
	cfg.SupabaseJWTSecret = getEnv("SUPABASE_JWT_SECRET", cfg.SupabaseJWTSecret)

	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}

	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.TraceSampleRatio = getEnvFloat("OTEL_TRACES_SAMPLER_ARG", cfg.TraceSampleRatio)

	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	cfg.WorkerPollMS = getEnvInt("WORKER_POLL_MS", cfg.WorkerPollMS)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "cohorthub")
	pass := getEnv("DB_PASSWORD", "cohorthub")
	name := getEnv("DB_NAME", "cohorthub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseFloat(v, 64)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
