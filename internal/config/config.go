package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Auth        AuthConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
	Tracing     TracingConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

type StoreConfig struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string
	MaxConnections int
}

type AuthConfig struct {
	JWTSecret  string
	JWTExpiry  time.Duration
	JWTIssuer  string
	BcryptCost int
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

// RateLimitConfig holds per-client request budgets. Zero disables a tier.
type RateLimitConfig struct {
	AuthPerMinute     int
	PublicPerMinute   int
	TrustedProxyCIDRs []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

// Load builds the Config from the environment, an optional .env file in the
// working directory, and configFile when non-empty. Environment variables win.
func Load(configFile string) (Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()

	// SECRET_KEY is the legacy name for the signing secret.
	_ = v.BindEnv("JWT_SECRET", "JWT_SECRET", "SECRET_KEY")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 5000)
	v.SetDefault("STORE_DRIVER", StoreMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "serendipity")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_CONNECTIONS", 25)
	v.SetDefault("JWT_EXPIRY", "168h")
	v.SetDefault("JWT_ISSUER", "serendipity")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_AUTH", 10)
	v.SetDefault("RATE_LIMIT_PUBLIC", 0)
	v.SetDefault("TRUSTED_PROXY_CIDRS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("TRACING_SERVICE_NAME", "serendipity")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_SAMPLE_RATE", 1.0)
	v.SetDefault("ENVIRONMENT", "development")

	cfg := Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
			MongoURI:       v.GetString("MONGO_URI"),
			MongoDatabase:  v.GetString("MONGO_DATABASE"),
			DatabaseURL:    v.GetString("DATABASE_URL"),
			MaxConnections: v.GetInt("DATABASE_MAX_CONNECTIONS"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			JWTExpiry:  v.GetDuration("JWT_EXPIRY"),
			JWTIssuer:  v.GetString("JWT_ISSUER"),
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute:     v.GetInt("RATE_LIMIT_AUTH"),
			PublicPerMinute:   v.GetInt("RATE_LIMIT_PUBLIC"),
			TrustedProxyCIDRs: splitList(v.GetString("TRUSTED_PROXY_CIDRS")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			Exporter:     v.GetString("TRACING_EXPORTER"),
			ServiceName:  v.GetString("TRACING_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
		Environment: strings.ToLower(strings.TrimSpace(v.GetString("ENVIRONMENT"))),
	}

	origins := splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	if cfg.Environment == "production" {
		if len(origins) == 0 {
			return Config{}, errors.New("CORS_ALLOWED_ORIGINS is required in production")
		}
		cfg.CORS = CORSConfig{AllowedOrigins: origins}
	} else {
		cfg.CORS = CORSConfig{AllowAllOrigins: len(origins) == 0, AllowedOrigins: origins}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive, got %s", c.Auth.JWTExpiry)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_DRIVER=mongo")
		}
		if c.Store.MongoDatabase == "" {
			return errors.New("MONGO_DATABASE is required when STORE_DRIVER=mongo")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreMemory:
		if c.Environment == "production" {
			return errors.New("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (must be %q, %q or %q)", c.Store.Driver, StoreMongo, StorePostgres, StoreMemory)
	}
	return nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
