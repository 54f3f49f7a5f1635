package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string        `yaml:"addr"`
	IdentityDSN string        `yaml:"identity_dsn"`
	Document    Document      `yaml:"document"`
	Redis       Redis         `yaml:"redis"`
	NATSURL     string        `yaml:"nats_url"`
	JWTSecret   string        `yaml:"jwt_secret"`
	AdminSecret string        `yaml:"admin_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	// ChallengeTTL bounds how long a key-login challenge stays valid.
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`
	Feed         Feed          `yaml:"feed"`
	Compat       Compat        `yaml:"compat"`
	RateLimits   RateLimits    `yaml:"rate_limits"`
	LogLevel     string        `yaml:"log_level"`
}

type Document struct {
	Backend  string `yaml:"backend"` // file or mongo
	Path     string `yaml:"path"`
	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`
}

// Redis enables the document cache when Addr is set.
type Redis struct {
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

type Feed struct {
	Strategy      string `yaml:"strategy"`
	RecencyLimit  int    `yaml:"recency_limit"`
	SampleLimit   int    `yaml:"sample_limit"`
	PruneOnCreate bool   `yaml:"prune_on_create"`
}

type Compat struct {
	// SilentRejection answers filtered posts with the plain 201 success body.
	SilentRejection bool `yaml:"silent_rejection"`
}

type RateLimits struct {
	PostPerMinute  int `yaml:"post_per_minute"`
	LoginPerMinute int `yaml:"login_per_minute"`
}

func Default() Config {
	return Config{
		Addr:         ":8080",
		IdentityDSN:  "ysocial.db",
		Document:     Document{Backend: "file", Path: "database/social_data.json", MongoDB: "ysocial"},
		Redis:        Redis{TTL: time.Minute},
		JWTSecret:    "dev-jwt-secret",
		AdminSecret:  "dev-admin-secret",
		TokenTTL:     24 * time.Hour,
		ChallengeTTL: 5 * time.Minute,
		Feed:         Feed{Strategy: "recency", RecencyLimit: 30, SampleLimit: 10},
		RateLimits:   RateLimits{PostPerMinute: 10, LoginPerMinute: 20},
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then YSOCIAL_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("YSOCIAL_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = envString("YSOCIAL_ADDR", c.Addr)
	if os.Getenv("YSOCIAL_ADDR") == "" {
		if port := os.Getenv("PORT"); port != "" {
			c.Addr = ":" + port
		}
	}
	c.IdentityDSN = envString("YSOCIAL_DB", c.IdentityDSN)
	c.Document.Backend = envString("YSOCIAL_DOC_BACKEND", c.Document.Backend)
	c.Document.Path = envString("YSOCIAL_DOC_PATH", c.Document.Path)
	c.Document.MongoURI = envString("YSOCIAL_MONGO_URI", c.Document.MongoURI)
	c.Document.MongoDB = envString("YSOCIAL_MONGO_DB", c.Document.MongoDB)
	c.Redis.Addr = envString("YSOCIAL_REDIS_ADDR", c.Redis.Addr)
	c.Redis.TTL = envDuration("YSOCIAL_REDIS_TTL", c.Redis.TTL)
	c.NATSURL = envString("YSOCIAL_NATS_URL", c.NATSURL)
	c.JWTSecret = envString("YSOCIAL_JWT_SECRET", c.JWTSecret)
	c.AdminSecret = envString("YSOCIAL_ADMIN_SECRET", c.AdminSecret)
	c.TokenTTL = envDuration("YSOCIAL_TOKEN_TTL", c.TokenTTL)
	c.ChallengeTTL = envDuration("YSOCIAL_CHALLENGE_TTL", c.ChallengeTTL)
	c.Feed.Strategy = envString("YSOCIAL_FEED_STRATEGY", c.Feed.Strategy)
	c.Feed.RecencyLimit = envInt("YSOCIAL_FEED_RECENCY_LIMIT", c.Feed.RecencyLimit)
	c.Feed.SampleLimit = envInt("YSOCIAL_FEED_SAMPLE_LIMIT", c.Feed.SampleLimit)
	c.Feed.PruneOnCreate = envBool("YSOCIAL_PRUNE_ON_CREATE", c.Feed.PruneOnCreate)
	c.Compat.SilentRejection = envBool("YSOCIAL_SILENT_REJECTION", c.Compat.SilentRejection)
	c.RateLimits.PostPerMinute = envInt("YSOCIAL_RL_POST_PER_MIN", c.RateLimits.PostPerMinute)
	c.RateLimits.LoginPerMinute = envInt("YSOCIAL_RL_LOGIN_PER_MIN", c.RateLimits.LoginPerMinute)
	c.LogLevel = envString("YSOCIAL_LOG_LEVEL", c.LogLevel)
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.IdentityDSN == "" {
		errs = append(errs, errors.New("identity_dsn is required"))
	}
	switch c.Document.Backend {
	case "file":
		if c.Document.Path == "" {
			errs = append(errs, errors.New("document.path is required for the file backend"))
		}
	case "mongo":
		if c.Document.MongoURI == "" {
			errs = append(errs, errors.New("document.mongo_uri is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown document backend %q", c.Document.Backend))
	}
	switch c.Feed.Strategy {
	case "recency", "random":
	default:
		errs = append(errs, fmt.Errorf("unknown feed strategy %q", c.Feed.Strategy))
	}
	if c.Feed.RecencyLimit <= 0 || c.Feed.SampleLimit <= 0 {
		errs = append(errs, errors.New("feed limits must be positive"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsPostgres reports whether the identity DSN points at Postgres rather than
// a sqlite file.
func (c Config) IsPostgres() bool {
	return strings.HasPrefix(c.IdentityDSN, "postgres://") || strings.HasPrefix(c.IdentityDSN, "postgresql://")
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
