// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Attribution policies for linking clicks and submissions to targets
const (
	AttributionLatest = "latest"
	AttributionVisit  = "visit"
)

// Config holds all configuration for the capture server, the dashboard and the CLI
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Capture   ServerConfig    `json:"capture"`
	Dashboard ServerConfig    `json:"dashboard"`
	Lure      LureConfig      `json:"lure"`
	Tracking  TrackingConfig  `json:"tracking"`
	Geo       GeoConfig       `json:"geo"`
	Cache     CacheConfig     `json:"cache"`
	Probe     ProbeConfig     `json:"probe"`
	Report    ReportConfig    `json:"report"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `json:"connect_timeout"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

// DSN renders the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// ServerConfig is shared by the capture and the dashboard listeners
// PortScan is the number of extra ports tried after Port; zero means fail when Port is busy
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	PortScan        int           `json:"port_scan"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	BodyLimit       int           `json:"body_limit"`
	ProxyHeader     string        `json:"proxy_header"`
	// TrustedProxies lists the peer IPs or CIDR ranges whose ProxyHeader is honored
	TrustedProxies  []string      `json:"trusted_proxies"`
}

type LureConfig struct {
	Template      string `json:"template"`
	TemplatesFile string `json:"templates_file"`
}

type TrackingConfig struct {
	Attribution string `json:"attribution"` // latest, visit
	CookieName  string `json:"cookie_name"`
}

type GeoConfig struct {
	BaseURL  string        `json:"base_url"`
	Timeout  time.Duration `json:"timeout"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

type CacheConfig struct {
	Enabled     bool   `json:"enabled"`
	RedisURL    string `json:"redis_url"`
	RedisDB     int    `json:"redis_db"`
	RedisPrefix string `json:"redis_prefix"`
}

type ProbeConfig struct {
	Workers int           `json:"workers"`
	Timeout time.Duration `json:"timeout"`
}

type ReportConfig struct {
	OutputDir string `json:"output_dir"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, console
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`
	EnableAccessLog  bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoadConfig loads .env (if present), applies environment overrides and validates the result
func LoadConfig() (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := fromViper(newViper())
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile loads variables from path without overriding ones already set
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "lurewatch")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 15*time.Minute)
	v.SetDefault("DB_CONNECT_TIMEOUT", 30*time.Second)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	setServerDefaults(v, "CAPTURE", 8000, 10)
	setServerDefaults(v, "DASHBOARD", 5000, 0)

	v.SetDefault("LURE_TEMPLATE", "generic")
	v.SetDefault("LURE_TEMPLATES_FILE", "")

	v.SetDefault("TRACKING_ATTRIBUTION", AttributionLatest)
	v.SetDefault("TRACKING_COOKIE_NAME", "tracking_token")

	v.SetDefault("GEO_BASE_URL", "http://ip-api.com")
	v.SetDefault("GEO_TIMEOUT", 5*time.Second)
	v.SetDefault("GEO_CACHE_TTL", time.Duration(0))

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_REDIS_URL", "redis://localhost:6379")
	v.SetDefault("CACHE_REDIS_DB", 0)
	v.SetDefault("CACHE_REDIS_PREFIX", "lurewatch:")

	v.SetDefault("PROBE_WORKERS", 8)
	v.SetDefault("PROBE_TIMEOUT", 10*time.Second)

	v.SetDefault("REPORT_OUTPUT_DIR", ".")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE_PATH", "logs/lurewatch.log")
	v.SetDefault("LOG_MAX_SIZE", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 10)
	v.SetDefault("LOG_MAX_AGE", 30)
	v.SetDefault("LOG_COMPRESS", true)
	v.SetDefault("LOG_ENABLE_CALLER", true)
	v.SetDefault("LOG_ENABLE_STACKTRACE", false)
	v.SetDefault("LOG_ENABLE_ACCESS", true)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.AutomaticEnv()
	return v
}

func setServerDefaults(v *viper.Viper, prefix string, port, scan int) {
	v.SetDefault(prefix+"_HOST", "0.0.0.0")
	v.SetDefault(prefix+"_PORT", port)
	v.SetDefault(prefix+"_PORT_SCAN", scan)
	v.SetDefault(prefix+"_READ_TIMEOUT", 30*time.Second)
	v.SetDefault(prefix+"_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault(prefix+"_IDLE_TIMEOUT", 120*time.Second)
	v.SetDefault(prefix+"_SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault(prefix+"_REQUEST_TIMEOUT", 15*time.Second)
	v.SetDefault(prefix+"_BODY_LIMIT", 1024*1024)
	v.SetDefault(prefix+"_PROXY_HEADER", "")
	v.SetDefault(prefix+"_TRUSTED_PROXIES", "")
}

func serverFromViper(v *viper.Viper, prefix string) ServerConfig {
	return ServerConfig{
		Host:            v.GetString(prefix + "_HOST"),
		Port:            v.GetInt(prefix + "_PORT"),
		PortScan:        v.GetInt(prefix + "_PORT_SCAN"),
		ReadTimeout:     v.GetDuration(prefix + "_READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration(prefix + "_WRITE_TIMEOUT"),
		IdleTimeout:     v.GetDuration(prefix + "_IDLE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration(prefix + "_SHUTDOWN_TIMEOUT"),
		RequestTimeout:  v.GetDuration(prefix + "_REQUEST_TIMEOUT"),
		BodyLimit:       v.GetInt(prefix + "_BODY_LIMIT"),
		ProxyHeader:     v.GetString(prefix + "_PROXY_HEADER"),
		TrustedProxies:  splitList(v.GetString(prefix + "_TRUSTED_PROXIES")),
	}
}

// splitList parses a comma separated env value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			SSLMode:         v.GetString("DB_SSL_MODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			ConnectTimeout:  v.GetDuration("DB_CONNECT_TIMEOUT"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Capture:   serverFromViper(v, "CAPTURE"),
		Dashboard: serverFromViper(v, "DASHBOARD"),
		Lure: LureConfig{
			Template:      v.GetString("LURE_TEMPLATE"),
			TemplatesFile: v.GetString("LURE_TEMPLATES_FILE"),
		},
		Tracking: TrackingConfig{
			Attribution: strings.ToLower(v.GetString("TRACKING_ATTRIBUTION")),
			CookieName:  v.GetString("TRACKING_COOKIE_NAME"),
		},
		Geo: GeoConfig{
			BaseURL:  strings.TrimRight(v.GetString("GEO_BASE_URL"), "/"),
			Timeout:  v.GetDuration("GEO_TIMEOUT"),
			CacheTTL: v.GetDuration("GEO_CACHE_TTL"),
		},
		Cache: CacheConfig{
			Enabled:     v.GetBool("CACHE_ENABLED"),
			RedisURL:    v.GetString("CACHE_REDIS_URL"),
			RedisDB:     v.GetInt("CACHE_REDIS_DB"),
			RedisPrefix: v.GetString("CACHE_REDIS_PREFIX"),
		},
		Probe: ProbeConfig{
			Workers: v.GetInt("PROBE_WORKERS"),
			Timeout: v.GetDuration("PROBE_TIMEOUT"),
		},
		Report: ReportConfig{
			OutputDir: v.GetString("REPORT_OUTPUT_DIR"),
		},
		Logging: LoggingConfig{
			Level:            strings.ToLower(v.GetString("LOG_LEVEL")),
			Format:           v.GetString("LOG_FORMAT"),
			Output:           v.GetString("LOG_OUTPUT"),
			FilePath:         v.GetString("LOG_FILE_PATH"),
			MaxSize:          v.GetInt("LOG_MAX_SIZE"),
			MaxBackups:       v.GetInt("LOG_MAX_BACKUPS"),
			MaxAge:           v.GetInt("LOG_MAX_AGE"),
			Compress:         v.GetBool("LOG_COMPRESS"),
			EnableCaller:     v.GetBool("LOG_ENABLE_CALLER"),
			EnableStacktrace: v.GetBool("LOG_ENABLE_STACKTRACE"),
			EnableAccessLog:  v.GetBool("LOG_ENABLE_ACCESS"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}
}

// ValidateConfig validates the loaded configuration and reports every problem at once
func ValidateConfig(cfg *Config) error {
	var errs []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errs = append(errs, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errs = append(errs, "DB_USER is required")
	}
	if cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS must not exceed DB_MAX_OPEN_CONNS")
	}
	if cfg.Database.ConnectTimeout <= 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be positive")
	}

	// Validate listeners
	for prefix, srv := range map[string]ServerConfig{"CAPTURE": cfg.Capture, "DASHBOARD": cfg.Dashboard} {
		if srv.Port <= 0 || srv.Port > 65535 {
			errs = append(errs, prefix+"_PORT must be between 1 and 65535")
		}
		if srv.PortScan < 0 {
			errs = append(errs, prefix+"_PORT_SCAN must not be negative")
		}
		if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 || srv.IdleTimeout <= 0 {
			errs = append(errs, prefix+" timeouts must be positive")
		}
		if srv.ProxyHeader != "" && len(srv.TrustedProxies) == 0 {
			errs = append(errs, prefix+"_TRUSTED_PROXIES is required when "+prefix+"_PROXY_HEADER is set")
		}
	}
	if cfg.Capture.Port == cfg.Dashboard.Port {
		errs = append(errs, "CAPTURE_PORT and DASHBOARD_PORT must differ")
	}

	// Validate tracking configuration
	if cfg.Tracking.Attribution != AttributionLatest && cfg.Tracking.Attribution != AttributionVisit {
		errs = append(errs, fmt.Sprintf("TRACKING_ATTRIBUTION must be one of: %v", []string{AttributionLatest, AttributionVisit}))
	}
	if cfg.Tracking.CookieName == "" {
		errs = append(errs, "TRACKING_COOKIE_NAME is required")
	}
	if cfg.Lure.Template == "" {
		errs = append(errs, "LURE_TEMPLATE is required")
	}

	// Validate geolocation configuration
	if cfg.Geo.BaseURL == "" {
		errs = append(errs, "GEO_BASE_URL is required")
	}
	if cfg.Geo.Timeout <= 0 {
		errs = append(errs, "GEO_TIMEOUT must be positive")
	}
	if cfg.Geo.CacheTTL < 0 {
		errs = append(errs, "GEO_CACHE_TTL must not be negative")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if cfg.Probe.Workers <= 0 {
		errs = append(errs, "PROBE_WORKERS must be positive")
	}
	if cfg.Probe.Timeout <= 0 {
		errs = append(errs, "PROBE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		errs = append(errs, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required when logging to a file")
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
