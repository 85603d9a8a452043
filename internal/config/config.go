// Package config reads quoteboard settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

type DynamoDB struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	TokensTable  string
	QuotesTable  string
	LimboTable   string
	RatingsTable string
}

type Backup struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Prefix     string
	Passphrase string
	Retention  time.Duration
}

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	Backend string
	DBPath  string

	// SessionSecret signs session cookies. When QUOTEBOARD_SESSION_SECRET
	// is unset a random one is generated and SessionSecretGenerated is set;
	// sessions then do not survive a restart.
	SessionSecret          []byte
	SessionSecretGenerated bool
	SessionTTL             time.Duration

	MaxScore int
	TokenTTL time.Duration

	DynamoDB DynamoDB
	Backup   Backup
}

// Load reads a .env file when present (real environment variables win) and
// builds a validated Config.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:      env("QUOTEBOARD_PORT", "8080"),
		LogLevel:  env("QUOTEBOARD_LOG_LEVEL", "info"),
		LogFormat: env("QUOTEBOARD_LOG_FORMAT", "text"),
		Backend:   strings.ToLower(env("QUOTEBOARD_BACKEND", BackendSQLite)),
		DBPath:    env("QUOTEBOARD_DB_PATH", "quoteboard.db"),
		DynamoDB: DynamoDB{
			Region:       env("AWS_DEFAULT_REGION", env("AWS_REGION", "us-east-1")),
			Endpoint:     env("QUOTEBOARD_DYNAMODB_ENDPOINT", ""),
			AccessKey:    env("AWS_ACCESS_KEY_ID", ""),
			SecretKey:    env("AWS_SECRET_ACCESS_KEY", ""),
			TokensTable:  env("QUOTEBOARD_TABLE_TOKENS", "afterdark-auth-tokens"),
			QuotesTable:  env("QUOTEBOARD_TABLE_QUOTES", "afterdark-quotes"),
			LimboTable:   env("QUOTEBOARD_TABLE_LIMBO", "limbo-afterdark-quotes-updated"),
			RatingsTable: env("QUOTEBOARD_TABLE_RATINGS", "afterdark-quote-ratings"),
		},
		Backup: Backup{
			Endpoint:   env("QUOTEBOARD_BACKUP_S3_ENDPOINT", ""),
			Bucket:     env("QUOTEBOARD_BACKUP_S3_BUCKET", ""),
			Region:     env("QUOTEBOARD_BACKUP_S3_REGION", "us-east-1"),
			AccessKey:  env("QUOTEBOARD_BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:  env("QUOTEBOARD_BACKUP_S3_SECRET_KEY", ""),
			Prefix:     env("QUOTEBOARD_BACKUP_S3_PREFIX", "quoteboard"),
			Passphrase: getenv("QUOTEBOARD_BACKUP_PASSPHRASE"),
		},
	}

	var err error
	if cfg.MaxScore, err = intEnv(env, "QUOTEBOARD_MAX_SCORE", 5); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = durationEnv(env, "QUOTEBOARD_TOKEN_TTL", 8*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv(env, "QUOTEBOARD_SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Backup.Retention, err = durationEnv(env, "QUOTEBOARD_BACKUP_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}

	if secret := getenv("QUOTEBOARD_SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		cfg.SessionSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.SessionSecret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecretGenerated = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("QUOTEBOARD_DB_PATH is required for the sqlite backend"))
		}
	case BackendDynamoDB:
		if c.DynamoDB.Region == "" {
			errs = append(errs, errors.New("AWS_DEFAULT_REGION is required for the dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("QUOTEBOARD_BACKEND must be %q or %q, got %q", BackendSQLite, BackendDynamoDB, c.Backend))
	}
	if c.MaxScore < 1 {
		errs = append(errs, fmt.Errorf("QUOTEBOARD_MAX_SCORE must be at least 1, got %d", c.MaxScore))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("QUOTEBOARD_TOKEN_TTL must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("QUOTEBOARD_SESSION_TTL must be positive"))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("QUOTEBOARD_SESSION_SECRET must be at least 16 bytes"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("QUOTEBOARD_PORT must be a number, got %q", c.Port))
	}
	return errors.Join(errs...)
}

func intEnv(env func(string, string) string, key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(env func(string, string) string, key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
