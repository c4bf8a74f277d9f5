package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MythTV.Port != 6544 {
		t.Errorf("MythTV.Port = %d, want 6544", cfg.MythTV.Port)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 5*time.Minute || cfg.Cache.Backend != CacheBackendMemory {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Browse.PageSize != 20 || !cfg.Browse.Paging || !cfg.Browse.TitleSplitting {
		t.Errorf("unexpected browse defaults: %+v", cfg.Browse)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
mythtv:
  host: mythbox
  timeout: 5s
  respect_master_backend_override: true
cache:
  ttl: 0s
browse:
  page_size: 50
  splitters: [" - "]
  split_exemptions: ["^CSI: "]
  menu:
    - [Category, Title]
ui:
  locale: de-DE
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MythTV.Host != "mythbox" || cfg.MythTV.Timeout != 5*time.Second || !cfg.MythTV.RespectMasterBackendOverride {
		t.Errorf("unexpected mythtv section: %+v", cfg.MythTV)
	}
	// Unset keys keep their defaults.
	if cfg.MythTV.Port != 6544 {
		t.Errorf("MythTV.Port = %d, want default 6544", cfg.MythTV.Port)
	}
	if cfg.Cache.TTL != 0 {
		t.Errorf("Cache.TTL = %s, want 0", cfg.Cache.TTL)
	}
	if cfg.Browse.PageSize != 50 {
		t.Errorf("Browse.PageSize = %d", cfg.Browse.PageSize)
	}
	if len(cfg.Browse.Menu) != 1 || strings.Join(cfg.Browse.Menu[0], ",") != "Category,Title" {
		t.Errorf("Browse.Menu = %v", cfg.Browse.Menu)
	}
	res, err := cfg.Browse.Exemptions()
	if err != nil || len(res) != 1 || !res[0].MatchString("CSI: Miami") {
		t.Errorf("Exemptions = %v, %v", res, err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mythtv: [unclosed"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"server port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"mythtv port", func(c *Config) { c.MythTV.Port = 70000 }, "MythTV port"},
		{"mythtv host", func(c *Config) { c.MythTV.Host = " " }, "MythTV host"},
		{"max count", func(c *Config) { c.MythTV.MaxCount = -1 }, "max_count"},
		{"tls without cert", func(c *Config) { c.Server.TLS.Enabled = true }, "cert file"},
		{"auth without password", func(c *Config) { c.Auth.Enabled = true }, "admin password"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "cache.ttl"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheBackendRedis }, "cache.redis.addr"},
		{"redis", func(c *Config) {
			c.Cache.Backend = CacheBackendRedis
			c.Cache.Redis.Addr = "localhost:6379"
		}, ""},
		{"negative page size", func(c *Config) { c.Browse.PageSize = -1 }, "page_size"},
		{"unbounded page size", func(c *Config) { c.Browse.PageSize = 0 }, ""},
		{"bad exemption", func(c *Config) { c.Browse.SplitExemptions = []string{"(unclosed"} }, "split_exemptions"},
		{"empty menu plan", func(c *Config) { c.Browse.Menu = [][]string{{}} }, "browse.menu"},
		{"menu path expression", func(c *Config) { c.Browse.Menu = [][]string{{"Title["}} }, "browse.menu"},
		{"unsupported locale", func(c *Config) { c.UI.Locale = "fr" }, "ui.locale"},
		{"german locale", func(c *Config) { c.UI.Locale = "de" }, ""},
		{"rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, "rate_limit"},
		{"rate limit disabled", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Requests = 0
		}, ""},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.MythTV.Host = "mythbox"
	cfg.Browse.Menu = [][]string{{"Title"}, {"Category", "Title"}}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MythTV.Host != "mythbox" || len(loaded.Browse.Menu) != 2 {
		t.Errorf("saved config did not round trip: %+v", loaded)
	}
}
