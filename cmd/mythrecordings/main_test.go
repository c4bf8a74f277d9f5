package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ohler55/ojg/oj"
)

func program(title, subtitle, category string) map[string]any {
	return map[string]any{
		"Title":     title,
		"SubTitle":  subtitle,
		"Category":  category,
		"StartTime": "2024-03-09T20:00:00Z",
		"EndTime":   "2024-03-09T21:00:00Z",
		"FileSize":  "1000",
		"Channel":   map[string]any{"ChanId": "1001", "ChannelName": "BBC One"},
		"Recording": map[string]any{
			"StartTs":  "2024-03-09T20:00:00Z",
			"EndTs":    "2024-03-09T21:00:00Z",
			"RecGroup": "Default",
		},
	}
}

// newBackend serves a fixed recording list with the given version.
func newBackend(t *testing.T, version string) *httptest.Server {
	t.Helper()
	programs := []any{
		program("Sherlock Holmes - A Scandal in Belgravia", "", "Drama"),
		program("Sherlock Holmes - The Hounds of Baskerville", "", "Drama"),
		program("Nature Documentary", "Oceans", "Documentary"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{"ProgramList": map[string]any{"Version": version, "Programs": programs}}
		_, _ = w.Write([]byte(oj.JSON(doc)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, backend string, extra string) string {
	t.Helper()
	u, err := url.Parse(backend)
	if err != nil {
		t.Fatalf("parse backend URL: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split backend host: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := fmt.Sprintf("mythtv:\n  host: %s\n  port: %s\n  timeout: 2s\nbrowse:\n  splitters: [\"-\"]\nlog:\n  level: error\n%s", host, port, extra)
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version", "--config", filepath.Join(t.TempDir(), "missing", "config.yaml"))
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "mythrecordings dev")
}

func TestConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "etc", "config.yaml")

	out, _, err := runCLI(t, "config", "init", "--config", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote default configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "config", "init", "--config", target); err == nil {
		t.Fatal("expected config init to refuse overwriting")
	}
	if _, _, err := runCLI(t, "config", "init", "--config", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, "config", "validate", "--config", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid (backend localhost:6544, cache memory, ttl 5m0s)")
}

func TestConfigValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  backend: memcached\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, "config", "validate", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "cache.backend") {
		t.Fatalf("expected cache.backend error, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	backend := newBackend(t, "0.28.20160309-1")
	cfgPath := writeConfig(t, backend.URL, "")

	out, _, err := runCLI(t, "validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	requireContains(t, out, "Connected to MythTV backend")
}

func TestValidateCommand_OldBackend(t *testing.T) {
	backend := newBackend(t, "0.25.2")
	cfgPath := writeConfig(t, backend.URL, "ui:\n  locale: de\n")

	_, errOut, err := runCLI(t, "validate", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected validate to fail for an old backend")
	}
	requireContains(t, errOut, "Kein kompatibles MythTV-Backend")
	requireContains(t, err.Error(), "incompatible backend version")
}

func TestBrowseCommand(t *testing.T) {
	backend := newBackend(t, "0.28.20160309-1")
	cfgPath := writeConfig(t, backend.URL, "")

	out, _, err := runCLI(t, "browse", "--config", cfgPath)
	if err != nil {
		t.Fatalf("browse menu: %v", err)
	}
	requireContains(t, out, "MythTV recordings")
	requireContains(t, out, "By Title")
	requireContains(t, out, `--group "Title"`)

	out, _, err = runCLI(t, "browse", "--config", cfgPath, "--group", "Title")
	if err != nil {
		t.Fatalf("browse by title: %v", err)
	}
	requireContains(t, out, "Sherlock Holmes (2)")
	requireContains(t, out, `--filter "Title=Sherlock Holmes"`)
	requireContains(t, out, "Nature Documentary")

	out, _, err = runCLI(t, "browse", "--config", cfgPath, "--filter", "Title=Sherlock Holmes", "--json")
	if err != nil {
		t.Fatalf("browse json: %v", err)
	}
	requireContains(t, out, `"type": "leaf"`)
	requireContains(t, out, "A Scandal in Belgravia")
}

func TestBrowseCommand_BadFilter(t *testing.T) {
	backend := newBackend(t, "0.28.20160309-1")
	cfgPath := writeConfig(t, backend.URL, "")

	_, _, err := runCLI(t, "browse", "--config", cfgPath, "--filter", "novalue")
	if err == nil || !strings.Contains(err.Error(), "invalid input") {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"} {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
