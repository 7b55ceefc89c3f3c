// Package config loads server configuration from defaults, an optional YAML
// file, a local .env file and CIVICCHAIN_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"civicchain/pkg/platform/secrets"
)

const envPrefix = "civicchain"

type RunMode string

const (
	RunModeDev  RunMode = "dev"
	RunModeProd RunMode = "prod"
)

func (m RunMode) Valid() bool {
	return m == RunModeDev || m == RunModeProd
}

func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

type Config struct {
	RunMode    RunMode          `yaml:"runMode"    envconfig:"RUN_MODE"`
	HTTP       HTTPConfig       `yaml:"http"       envconfig:"HTTP"`
	Log        LogConfig        `yaml:"log"        envconfig:"LOG"`
	Token      TokenConfig      `yaml:"token"      envconfig:"TOKEN"`
	Admin      AdminConfig      `yaml:"admin"      envconfig:"ADMIN"`
	Database   DatabaseConfig   `yaml:"database"   envconfig:"DATABASE"`
	Redis      RedisConfig      `yaml:"redis"      envconfig:"REDIS"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"   envconfig:"RABBITMQ"`
	Suggestion SuggestionConfig `yaml:"suggestion" envconfig:"SUGGESTION"`
	Grievance  GrievanceConfig  `yaml:"grievance"  envconfig:"GRIEVANCE"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"            envconfig:"ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `yaml:"corsOrigins"     envconfig:"CORS_ORIGINS"`
}

type LogConfig struct {
	Level  string `yaml:"level"  envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// TokenConfig covers citizen bearer tokens.
type TokenConfig struct {
	SigningKey string        `yaml:"signingKey" envconfig:"SIGNING_KEY"`
	Issuer     string        `yaml:"issuer"     envconfig:"ISSUER"`
	TTL        time.Duration `yaml:"ttl"        envconfig:"TTL"`
}

type AdminConfig struct {
	Operators       Operators     `yaml:"operators"       envconfig:"OPERATORS"`
	SessionTTL      time.Duration `yaml:"sessionTTL"      envconfig:"SESSION_TTL"`
	RememberTTL     time.Duration `yaml:"rememberTTL"     envconfig:"REMEMBER_TTL"`
	ExtendTTL       time.Duration `yaml:"extendTTL"       envconfig:"EXTEND_TTL"`
	WarnWindow      time.Duration `yaml:"warnWindow"      envconfig:"WARN_WINDOW"`
	MaxFailedLogins int           `yaml:"maxFailedLogins" envconfig:"MAX_FAILED_LOGINS"`
	LockoutDuration time.Duration `yaml:"lockoutDuration" envconfig:"LOCKOUT_DURATION"`
	SweepSchedule   string        `yaml:"sweepSchedule"   envconfig:"SWEEP_SCHEDULE"`
}

// Operator is an administrator allowed to open operator sessions.
type Operator struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"passwordHash"`
	Name         string `yaml:"name"`
}

// Operators decodes from the environment as "email|bcrypt-hash|name"
// entries separated by ";".
type Operators []Operator

func (o *Operators) Decode(value string) error {
	var out Operators
	for entry := range strings.SplitSeq(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) < 2 {
			return fmt.Errorf("operator entry %q must be email|hash[|name]", entry)
		}
		op := Operator{Email: strings.TrimSpace(parts[0]), PasswordHash: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			op.Name = strings.TrimSpace(parts[2])
		}
		out = append(out, op)
	}
	*o = out
	return nil
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"             envconfig:"URL"`
	MaxOpenConns    int           `yaml:"maxOpenConns"    envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"maxIdleConns"    envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" envconfig:"CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"          envconfig:"URL"`
	PoolSize     int           `yaml:"poolSize"     envconfig:"POOL_SIZE"`
	MinIdleConns int           `yaml:"minIdleConns" envconfig:"MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `yaml:"dialTimeout"  envconfig:"DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"WRITE_TIMEOUT"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"      envconfig:"URL"`
	Exchange string `yaml:"exchange" envconfig:"EXCHANGE"`
}

type SuggestionConfig struct {
	URL              string        `yaml:"url"              envconfig:"URL"`
	Timeout          time.Duration `yaml:"timeout"          envconfig:"TIMEOUT"`
	FailureThreshold int           `yaml:"failureThreshold" envconfig:"FAILURE_THRESHOLD"`
	RetryInterval    time.Duration `yaml:"retryInterval"    envconfig:"RETRY_INTERVAL"`
}

type GrievanceConfig struct {
	BulkConcurrency int    `yaml:"bulkConcurrency" envconfig:"BULK_CONCURRENCY"`
	DefaultPageSize int    `yaml:"defaultPageSize" envconfig:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int    `yaml:"maxPageSize"     envconfig:"MAX_PAGE_SIZE"`
	MaxBulkSize     int    `yaml:"maxBulkSize"     envconfig:"MAX_BULK_SIZE"`
	TransitionRule  string `yaml:"transitionRule"  envconfig:"TRANSITION_RULE"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		RunMode: RunModeDev,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Token: TokenConfig{
			Issuer: "civicchain",
			TTL:    7 * 24 * time.Hour,
		},
		Admin: AdminConfig{
			SessionTTL:      30 * time.Minute,
			RememberTTL:     24 * time.Hour,
			ExtendTTL:       30 * time.Minute,
			WarnWindow:      5 * time.Minute,
			MaxFailedLogins: 3,
			LockoutDuration: 5 * time.Minute,
			SweepSchedule:   "@every 1m",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		RabbitMQ:   RabbitMQConfig{Exchange: "civicchain.grievances"},
		Suggestion: SuggestionConfig{Timeout: 3 * time.Second, FailureThreshold: 3, RetryInterval: 30 * time.Second},
		Grievance: GrievanceConfig{
			BulkConcurrency: 8,
			DefaultPageSize: 50,
			MaxPageSize:     100,
			MaxBulkSize:     500,
			TransitionRule:  "permissive",
		},
	}
}

// Load builds the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if cfg.RunMode.IsDevMode() && cfg.Token.SigningKey == "" {
		key, err := secrets.Generate()
		if err != nil {
			return nil, err
		}
		cfg.Token.SigningKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !c.RunMode.Valid() {
		errs = append(errs, fmt.Errorf("invalid run mode %q", c.RunMode))
	}
	if c.Token.SigningKey == "" {
		errs = append(errs, errors.New("token signing key is required"))
	} else if !c.RunMode.IsDevMode() && len(c.Token.SigningKey) < 32 {
		errs = append(errs, errors.New("token signing key must be at least 32 bytes"))
	}
	for name, d := range map[string]time.Duration{
		"token ttl":              c.Token.TTL,
		"admin session ttl":      c.Admin.SessionTTL,
		"admin remember ttl":     c.Admin.RememberTTL,
		"admin extend ttl":       c.Admin.ExtendTTL,
		"admin warn window":      c.Admin.WarnWindow,
		"admin lockout duration": c.Admin.LockoutDuration,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Admin.MaxFailedLogins <= 0 {
		errs = append(errs, errors.New("admin max failed logins must be positive"))
	}
	for i, op := range c.Admin.Operators {
		if op.Email == "" || op.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("admin operator %d needs email and password hash", i))
		}
	}
	if c.Grievance.BulkConcurrency <= 0 {
		errs = append(errs, errors.New("grievance bulk concurrency must be positive"))
	}
	if c.Grievance.DefaultPageSize <= 0 || c.Grievance.MaxPageSize < c.Grievance.DefaultPageSize {
		errs = append(errs, errors.New("grievance page sizes must satisfy 0 < default <= max"))
	}
	switch c.Grievance.TransitionRule {
	case "permissive", "forward-only":
	default:
		errs = append(errs, fmt.Errorf("unknown grievance transition rule %q", c.Grievance.TransitionRule))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
