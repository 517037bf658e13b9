package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks the whole configuration and reports all problems at once.
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		add("server.port", "must be a valid TCP port, got %q", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" {
			add("database.host", "is required for postgres")
		}
		if cfg.Database.Name == "" {
			add("database.name", "is required for postgres")
		}
		if cfg.Database.User == "" {
			add("database.user", "is required for postgres")
		}
		if cfg.Env.IsProduction() && cfg.Database.Password == "" {
			add("database.password", "db_password secret is required in production")
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			add("database.sqlite_path", "is required for sqlite")
		}
	default:
		add("database.driver", "must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled && cfg.Redis.URL == "" && cfg.Redis.Host == "" {
		add("redis", "url or host is required when redis is enabled")
	}
	if cfg.Redis.TTL < 0 {
		add("redis.ttl", "must not be negative")
	}

	w := cfg.Engine.HybridWeights
	if w.Recipe < 0 || w.Query < 0 {
		add("engine.hybrid_weights", "must be non-negative")
	}
	if math.Abs(w.Recipe+w.Query-1) > 1e-9 {
		add("engine.hybrid_weights", "must sum to 1, got %v", w.Recipe+w.Query)
	}
	if cfg.Engine.FuzzyThreshold <= 0 || cfg.Engine.FuzzyThreshold > 1 {
		add("engine.fuzzy_threshold", "must be within (0,1], got %v", cfg.Engine.FuzzyThreshold)
	}
	if cfg.Engine.DefaultTopK < 1 || cfg.Engine.DefaultTopK > 100 {
		add("engine.default_top_k", "must be within [1,100], got %d", cfg.Engine.DefaultTopK)
	}
	switch cfg.Engine.NutrientSource {
	case NutrientSourceDatabase:
	case NutrientSourceFile:
		if cfg.Engine.NutrientFile == "" {
			add("engine.nutrient_file", "is required when nutrient_source is file")
		}
	case NutrientSourceS3:
		if cfg.Storage.Bucket == "" {
			add("storage.bucket", "is required when nutrient_source is s3")
		}
		if cfg.Storage.NutrientKey == "" {
			add("storage.nutrient_key", "is required when nutrient_source is s3")
		}
	default:
		add("engine.nutrient_source", "must be database, file or s3, got %q", cfg.Engine.NutrientSource)
	}
	if cfg.Engine.RebuildInterval < 0 {
		add("engine.rebuild_interval", "must not be negative")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Requests <= 0 {
			add("rate_limit.requests", "must be positive")
		}
		if cfg.RateLimit.Window <= 0 {
			add("rate_limit.window", "must be positive")
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "must be debug, info, warn or error, got %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		add("log.format", "must be json or console, got %q", cfg.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
