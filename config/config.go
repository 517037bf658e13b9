package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env       Environment     `mapstructure:"-"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdminToken guards the rebuild endpoint when set.
	AdminToken string `mapstructure:"admin_token"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type WeightsConfig struct {
	Recipe float64 `mapstructure:"recipe"`
	Query  float64 `mapstructure:"query"`
}

type EngineConfig struct {
	HybridWeights  WeightsConfig `mapstructure:"hybrid_weights"`
	FuzzyThreshold float64       `mapstructure:"fuzzy_threshold"`
	DefaultTopK    int           `mapstructure:"default_top_k"`
	// AliasTablePath overrides the embedded alias table when set.
	AliasTablePath string `mapstructure:"alias_table_path"`
	// NutrientSource is one of database, file or s3.
	NutrientSource string `mapstructure:"nutrient_source"`
	NutrientFile   string `mapstructure:"nutrient_file"`
	// RebuildInterval enables periodic snapshot rebuilds when positive.
	RebuildInterval time.Duration `mapstructure:"rebuild_interval"`
}

type StorageConfig struct {
	Bucket       string `mapstructure:"bucket"`
	NutrientKey  string `mapstructure:"nutrient_key"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	NutrientSourceDatabase = "database"
	NutrientSourceFile     = "file"
	NutrientSourceS3       = "s3"
)

// envBindings maps config keys to the plain environment names used by the
// deployment scripts. APP_-prefixed names always work as well.
var envBindings = map[string][]string{
	"server.host":          {"SERVER_HOST"},
	"server.port":          {"SERVER_PORT", "PORT"},
	"server.admin_token":   {"ADMIN_TOKEN"},
	"database.driver":      {"DB_DRIVER"},
	"database.host":        {"DB_HOST"},
	"database.port":        {"DB_PORT"},
	"database.user":        {"DB_USER"},
	"database.password":    {"DB_PASSWORD"},
	"database.name":        {"DB_NAME"},
	"database.ssl_mode":    {"DB_SSL_MODE"},
	"database.sqlite_path": {"SQLITE_PATH"},
	"redis.enabled":        {"REDIS_ENABLED"},
	"redis.url":            {"REDIS_URL"},
	"redis.host":           {"REDIS_HOST"},
	"redis.port":           {"REDIS_PORT"},
	"redis.password":       {"REDIS_PASSWORD"},
	"storage.bucket":       {"S3_BUCKET_NAME"},
	"storage.region":       {"AWS_REGION"},
	"storage.endpoint":     {"S3_ENDPOINT"},
	"rate_limit.enabled":   {"RATE_LIMIT_ENABLED"},
	"rate_limit.requests":  {"RATE_LIMIT_REQUESTS"},
	"rate_limit.window":    {"RATE_LIMIT_WINDOW"},
	"log.level":            {"LOG_LEVEL"},
	"log.format":           {"LOG_FORMAT"},
}

// secretBindings are read from Docker secrets when the value is still empty
// after defaults, .env and the environment have been applied.
var secretBindings = map[string]string{
	"database.user":      "db_user",
	"database.password":  "db_password",
	"redis.password":     "redis_password",
	"redis.url":          "redis_url",
	"server.admin_token": "admin_token",
}

// LoadConfig reads configuration from defaults, an optional .env file,
// environment variables and Docker secrets, then validates it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range envBindings {
		if err := v.BindEnv(append([]string{key}, envNames(key)...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	for key, secret := range secretBindings {
		if envSet(key) {
			continue
		}
		if value := readSecret(secret); value != "" {
			v.Set(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Env = GetEnvironment()

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "alchemorsel")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "alchemorsel.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("engine.hybrid_weights.recipe", 0.6)
	v.SetDefault("engine.hybrid_weights.query", 0.4)
	v.SetDefault("engine.fuzzy_threshold", 0.8)
	v.SetDefault("engine.default_top_k", 20)
	v.SetDefault("engine.alias_table_path", "")
	v.SetDefault("engine.nutrient_source", NutrientSourceDatabase)
	v.SetDefault("engine.nutrient_file", "")
	v.SetDefault("engine.rebuild_interval", "0s")

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.nutrient_key", "nutrients/reference.json")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_path_style", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// envNames lists the environment variables bound to key, APP_-prefixed first.
func envNames(key string) []string {
	names := []string{"APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	return append(names, envBindings[key]...)
}

// envSet reports whether any environment variable for key is non-empty.
func envSet(key string) bool {
	for _, name := range envNames(key) {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
