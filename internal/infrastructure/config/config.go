package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"go.yaml.in/yaml/v4"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	MythTV    MythTVConfig    `yaml:"mythtv"`
	Auth      AuthConfig      `yaml:"auth"`
	Cache     CacheConfig     `yaml:"cache"`
	Browse    BrowseConfig    `yaml:"browse"`
	Aliases   AliasesConfig   `yaml:"aliases"`
	UI        UIConfig        `yaml:"ui"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	TLS            TLSConfig     `yaml:"tls"`
}

// TLSConfig contains TLS settings
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// MythTVConfig contains master backend connection settings
type MythTVConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxCount limits every fetch to that many recordings. 0 fetches all.
	MaxCount                     int  `yaml:"max_count"`
	RespectMasterBackendOverride bool `yaml:"respect_master_backend_override"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	Enabled   bool     `yaml:"enabled"`
	AdminUser string   `yaml:"admin_user"`
	AdminPass string   `yaml:"admin_pass"`
	LocalNets []string `yaml:"local_nets"`
}

// CacheConfig contains recording cache settings
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Backend string        `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig contains the shared entry store settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// BrowseConfig controls grouping, splitting and leaf projection
type BrowseConfig struct {
	PageSize             int           `yaml:"page_size"`
	Paging               bool          `yaml:"paging"`
	SeriesDetection      bool          `yaml:"series_detection"`
	TitleSplitting       bool          `yaml:"title_splitting"`
	Splitters            []string      `yaml:"splitters"`
	SplitExemptions      []string      `yaml:"split_exemptions"`
	StripChars           string        `yaml:"strip_chars"`
	MaxHeaderLength      int           `yaml:"max_header_length"`
	StillRecordingWindow time.Duration `yaml:"still_recording_window"`
	ProcessingPadding    time.Duration `yaml:"processing_padding"`
	FallbackDuration     time.Duration `yaml:"fallback_duration"`
	CoalesceTitles       bool          `yaml:"coalesce_titles"`
	// Menu lists the top-level group plans, e.g. [Category, Title].
	Menu [][]string `yaml:"menu"`
}

// AliasesConfig points at the alias tables file
type AliasesConfig struct {
	File     string `yaml:"file"`
	Category string `yaml:"category"`
}

// UIConfig contains presentation settings
type UIConfig struct {
	Locale         string `yaml:"locale"`
	ResourceDir    string `yaml:"resource_dir"`
	ResourcePrefix string `yaml:"resource_prefix"`
}

// RateLimitConfig limits API requests per client IP
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		},
		MythTV: MythTVConfig{
			Host:    "localhost",
			Port:    6544,
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Enabled:   false,
			AdminUser: "admin",
			LocalNets: []string{},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
			Backend: CacheBackendMemory,
		},
		Browse: BrowseConfig{
			PageSize:             20,
			Paging:               true,
			TitleSplitting:       true,
			Splitters:            []string{"-", ":"},
			SplitExemptions:      []string{},
			StripChars:           " \t\r\n.,:;-_\"'",
			MaxHeaderLength:      80,
			StillRecordingWindow: 30 * time.Second,
			ProcessingPadding:    5 * time.Minute,
			FallbackDuration:     3 * time.Hour,
		},
		Aliases: AliasesConfig{
			Category: "categoryAliases",
		},
		UI: UIConfig{
			Locale: "en",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := Default()

	// If config file exists, load it
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil // Use defaults if file doesn't exist
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.MythTV.Port < 1 || c.MythTV.Port > 65535 {
		return fmt.Errorf("invalid MythTV port: %d", c.MythTV.Port)
	}

	if strings.TrimSpace(c.MythTV.Host) == "" {
		return errors.New("MythTV host is required")
	}

	if c.MythTV.Timeout < 0 {
		return fmt.Errorf("invalid MythTV timeout: %s", c.MythTV.Timeout)
	}

	if c.MythTV.MaxCount < 0 {
		return fmt.Errorf("invalid mythtv.max_count: %d (must be >= 0)", c.MythTV.MaxCount)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	if c.Auth.Enabled {
		if c.Auth.AdminUser == "" {
			return errors.New("admin user is required when auth is enabled")
		}
		if c.Auth.AdminPass == "" {
			return errors.New("admin password is required when auth is enabled")
		}
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("invalid cache.ttl: %s (must be >= 0)", c.Cache.TTL)
	}
	switch c.Cache.Backend {
	case "", CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("cache.redis.addr is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("invalid cache.backend: %q (must be memory or redis)", c.Cache.Backend)
	}

	if c.Browse.PageSize < 0 {
		return fmt.Errorf("invalid browse.page_size: %d (must be >= 0)", c.Browse.PageSize)
	}
	if c.Browse.MaxHeaderLength < 0 {
		return fmt.Errorf("invalid browse.max_header_length: %d", c.Browse.MaxHeaderLength)
	}
	if _, err := c.Browse.Exemptions(); err != nil {
		return err
	}
	for i, plan := range c.Browse.Menu {
		if len(plan) == 0 {
			return fmt.Errorf("invalid browse.menu[%d]: empty plan", i)
		}
		for _, key := range plan {
			if !domain.ValidFieldPath(key) {
				return fmt.Errorf("invalid browse.menu[%d]: field %q", i, key)
			}
		}
	}

	if !i18n.Supported(c.UI.Locale) {
		return fmt.Errorf("invalid ui.locale: %q (must be en or de)", c.UI.Locale)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate_limit: %d requests per %s", c.RateLimit.Requests, c.RateLimit.Window)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %q (must be debug, info, warn, or error)", c.Log.Level)
	}

	return nil
}

// Exemptions compiles the title split exemption patterns.
func (b BrowseConfig) Exemptions() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(b.SplitExemptions))
	for _, p := range b.SplitExemptions {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid browse.split_exemptions pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Save writes the configuration to a YAML file atomically
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
