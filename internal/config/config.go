// Package config loads process configuration from the environment and
// command-line flags. Flags win over environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/providers"
	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// Run modes
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeToken  = "token"
)

// Persistence backends
const (
	BackendLocal      = "local"
	BackendReplicated = "replicated"
)

// Encryption metadata backends
const (
	MetadataKeychain = "keychain"
	MetadataSQL      = "sql"
)

// Config is the full process configuration.
type Config struct {
	Mode string

	// HTTP API
	Host           string
	Port           int
	JWTSecret      string
	AllowedOrigins []string

	// Persistence
	PersistenceBackend   string
	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetime    time.Duration
	DBConnMaxIdleTime    time.Duration
	RedisURL             string
	ReplicationNamespace string

	// Credentials
	CredentialKey   string // base64, 32 bytes; empty means the OS keyring
	KeychainService string
	MetadataBackend string
	ProvidersFile   string

	// Notification sinks
	SlackWebhookURL string
	PosthogAPIKey   string
	PosthogEndpoint string

	// Token validation scheduler
	TokenValidationInterval    time.Duration
	TokenValidationConcurrency int
	SchedulerEnabled           bool
	SchedulerLockRequired      bool

	// token mode
	TokenSubject string
	TokenTTL     time.Duration
}

// Load reads the environment, then applies flags from args (without the
// program name). The first positional argument, if any, is the run mode.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		Mode:           getEnv("RUN_MODE", ModeAll),
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvInt("PORT", 8080),
		JWTSecret:      getEnv("JWT_SECRET", "development-secret-change-in-production"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		PersistenceBackend:   getEnv("PERSISTENCE_BACKEND", BackendLocal),
		DatabaseURL:          getEnv("DATABASE_URL", "sqlite://sercha-connect.db"),
		DBMaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		DBConnMaxIdleTime:    getEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute),
		RedisURL:             getEnv("REDIS_URL", ""),
		ReplicationNamespace: getEnv("REPLICATION_NAMESPACE", "sercha:connect"),

		CredentialKey:   getEnv("CREDENTIAL_KEY", ""),
		KeychainService: getEnv("KEYCHAIN_SERVICE", "sercha-connect"),
		MetadataBackend: getEnv("METADATA_BACKEND", MetadataSQL),
		ProvidersFile:   getEnv("PROVIDERS_FILE", ""),

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		PosthogAPIKey:   getEnv("POSTHOG_API_KEY", ""),
		PosthogEndpoint: getEnv("POSTHOG_ENDPOINT", ""),

		TokenValidationInterval:    getEnvDuration("TOKEN_VALIDATION_INTERVAL", 15*time.Minute),
		TokenValidationConcurrency: getEnvInt("TOKEN_VALIDATION_CONCURRENCY", 8),
		SchedulerEnabled:           getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerLockRequired:      getEnvBool("SCHEDULER_LOCK_REQUIRED", true),

		TokenSubject: getEnv("TOKEN_SUBJECT", "operator"),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
	}

	fs := pflag.NewFlagSet("sercha-connect", pflag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP listen host")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "CORS allowed origins")
	fs.StringVar(&cfg.PersistenceBackend, "persistence", cfg.PersistenceBackend, "persistence backend: local or replicated")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "sqlite:// or postgres:// URL")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the replicated backend and scheduler lock")
	fs.StringVar(&cfg.ReplicationNamespace, "namespace", cfg.ReplicationNamespace, "Redis key namespace")
	fs.StringVar(&cfg.KeychainService, "keychain-service", cfg.KeychainService, "OS keyring service name")
	fs.StringVar(&cfg.MetadataBackend, "metadata", cfg.MetadataBackend, "encryption metadata backend: keychain or sql")
	fs.StringVar(&cfg.ProvidersFile, "providers", cfg.ProvidersFile, "YAML file with provider OAuth clients")
	fs.DurationVar(&cfg.TokenValidationInterval, "validation-interval", cfg.TokenValidationInterval, "token validation interval")
	fs.IntVar(&cfg.TokenValidationConcurrency, "validation-concurrency", cfg.TokenValidationConcurrency, "parallel token validations (0 = unbounded)")
	fs.BoolVar(&cfg.SchedulerEnabled, "scheduler", cfg.SchedulerEnabled, "run the token validation scheduler")
	fs.BoolVar(&cfg.SchedulerLockRequired, "scheduler-lock-required", cfg.SchedulerLockRequired, "skip a cycle when the lock backend fails")
	fs.StringVar(&cfg.TokenSubject, "subject", cfg.TokenSubject, "subject for token mode")
	fs.DurationVar(&cfg.TokenTTL, "ttl", cfg.TokenTTL, "lifetime for token mode")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Mode = rest[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAll, ModeAPI, ModeWorker, ModeToken:
	default:
		return fmt.Errorf("unknown mode %q (use: all, api, worker or token)", c.Mode)
	}

	switch c.PersistenceBackend {
	case BackendLocal:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the local backend")
		}
	case BackendReplicated:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the replicated backend")
		}
	default:
		return fmt.Errorf("unknown persistence backend %q", c.PersistenceBackend)
	}

	switch c.MetadataBackend {
	case MetadataKeychain:
	case MetadataSQL:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for sql encryption metadata")
		}
	default:
		return fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TokenValidationInterval <= 0 {
		return fmt.Errorf("invalid token validation interval %s", c.TokenValidationInterval)
	}
	return nil
}

// providersFile is the on-disk layout of PROVIDERS_FILE.
type providersFile struct {
	Providers map[domain.ProviderType]providers.Config `yaml:"providers"`
}

// LoadProviders reads provider OAuth clients from a YAML file. An empty
// path yields an empty map.
func LoadProviders(path string) (map[domain.ProviderType]providers.Config, error) {
	if path == "" {
		return map[domain.ProviderType]providers.Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse providers file %s: %w", path, err)
	}
	if file.Providers == nil {
		file.Providers = map[domain.ProviderType]providers.Config{}
	}

	// Secrets may be kept out of the file
	for t, c := range file.Providers {
		c.ClientSecret = os.ExpandEnv(c.ClientSecret)
		file.Providers[t] = c
	}
	return file.Providers, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
