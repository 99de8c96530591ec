// Package config handles application configuration loading from YAML files and environment variables.
package config

import (
	"cmp"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "coachapp/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable that points at the YAML config file.
const ConfigFileEnv = "COACH_CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`
	Email         EmailConfig         `json:"email" yaml:"email"`
	Planner       PlannerConfig       `json:"planner" yaml:"planner"`
	Cache         CacheConfig         `json:"cache" yaml:"cache"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port              string   `json:"port" yaml:"port"`
	WorkerPort        string   `json:"worker_port" yaml:"worker_port"`
	Debug             bool     `json:"debug" yaml:"debug"`
	LogLevel          string   `json:"log_level" yaml:"log_level"`
	WorkerInternalURL string   `json:"worker_internal_url" yaml:"worker_internal_url"`
	AppBaseURL        string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins"`
	// SeedCatalog loads the embedded topic catalog at startup when true.
	SeedCatalog bool `json:"seed_catalog" yaml:"seed_catalog"`
	// CircuitBreakerThreshold is the run of consecutive 5xx responses that
	// makes the server shed load. Zero disables the breaker.
	CircuitBreakerThreshold int           `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	CircuitBreakerCooldown  time.Duration `json:"circuit_breaker_cooldown" yaml:"circuit_breaker_cooldown"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "coach-backend" or "coach-worker"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP         SMTPConfig         `json:"smtp" yaml:"smtp"`
	WeeklyDigest WeeklyDigestConfig `json:"weekly_digest" yaml:"weekly_digest"`
	Enabled      bool               `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// WeeklyDigestConfig controls the plan digest mail sent after the worker builds a roadmap
type WeeklyDigestConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// PlannerConfig controls roadmap generation and the background planner
type PlannerConfig struct {
	// Interval between worker passes over all learners.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// Concurrency bounds how many learners are planned at once.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
	// AnalyticsWeeks is the default look-back for completion analytics.
	AnalyticsWeeks int `json:"analytics_weeks" yaml:"analytics_weeks"`
	// StartPaused keeps the worker idle until resumed.
	StartPaused bool `json:"start_paused" yaml:"start_paused"`
}

// CacheConfig configures the optional roadmap read cache
type CacheConfig struct {
	RedisAddr string        `json:"redis_addr" yaml:"redis_addr"`
	RedisDB   int           `json:"redis_db" yaml:"redis_db"`
	TTL       time.Duration `json:"ttl" yaml:"ttl"`
}

// Enabled reports whether a Redis address is configured
func (c CacheConfig) Enabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (*Config, error) {
	config, err := loadConfigFile()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// applyDefaults fills zero values that would otherwise disable the service
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.WorkerPort == "" {
		c.Server.WorkerPort = "8081"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = DatabaseConnMaxLifetime
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
	if c.Planner.Interval <= 0 {
		c.Planner.Interval = DefaultPlannerInterval
	}
	if c.Planner.Concurrency <= 0 {
		c.Planner.Concurrency = DefaultPlannerConcurrency
	}
	if c.Planner.AnalyticsWeeks <= 0 {
		c.Planner.AnalyticsWeeks = DefaultAnalyticsWeeks
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Server.CircuitBreakerThreshold > 0 && c.Server.CircuitBreakerCooldown <= 0 {
		c.Server.CircuitBreakerCooldown = DefaultCircuitBreakerCooldown
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideFromEnv(reflect.ValueOf(c).Elem(), "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideFromEnv walks v and replaces each field whose environment variable
// is set. Names follow the yaml tag path, e.g. PLANNER_CONCURRENCY. Values
// that do not parse leave the field untouched.
func overrideFromEnv(v reflect.Value, prefix string) {
	typ := v.Type()
	for i := range v.NumField() {
		field := v.Field(i)
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("yaml"), ",")
		if !field.CanSet() || name == "" || name == "-" {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if prefix != "" {
			key = prefix + "_" + key
		}

		if field.Kind() == reflect.Struct {
			overrideFromEnv(field, key)
			continue
		}
		if raw, ok := os.LookupEnv(key); ok && raw != "" {
			setField(field, raw)
		}
	}
}

func setField(field reflect.Value, raw string) {
	if field.Type() == durationType {
		if d, err := time.ParseDuration(raw); err == nil {
			field.SetInt(int64(d))
		}
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			field.SetFloat(f)
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			field.Set(reflect.ValueOf(strings.Split(raw, ",")))
		}
	}
}

// loadConfigFile reads the file named by COACH_CONFIG_FILE, or ./config.yaml
func loadConfigFile() (*Config, error) {
	path := cmp.Or(os.Getenv(ConfigFileEnv), "config.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &config, nil
}
