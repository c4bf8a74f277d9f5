package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/githubixx/mythrecordings-go/internal/adapters/secondary/mythtv"
	"github.com/githubixx/mythrecordings-go/internal/application/catalog"
	"github.com/githubixx/mythrecordings-go/internal/application/services"
	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/config"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/resources"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBrowser struct {
	listing *domain.Listing
	err     error
	got     domain.BrowseAction
}

func (f *fakeBrowser) Menu() *domain.Listing {
	return &domain.Listing{Title: "MythTV recordings", Nodes: []domain.Node{
		domain.DirectoryNode{Title: "By Title", Action: domain.BrowseAction{Plan: domain.GroupPlan{"Title"}}},
	}}
}

func (f *fakeBrowser) Browse(ctx context.Context, action domain.BrowseAction) (*domain.Listing, error) {
	f.got = action
	return f.listing, f.err
}

type fakeCache struct {
	invalidated int
	invalidErr  error
	checkErr    error
}

func (f *fakeCache) InvalidateCache(ctx context.Context) error {
	f.invalidated++
	return f.invalidErr
}

func (f *fakeCache) CheckBackend(ctx context.Context) error {
	return f.checkErr
}

func newTestRoutes(t *testing.T, b Browser, c RecordingCache, auth config.AuthConfig, rate config.RateLimitConfig) http.Handler {
	t.Helper()
	loc, err := i18n.New("en")
	require.NoError(t, err)
	h := NewHandler(discardLogger(), b, c, loc, "mythbox:6544")
	return SetupRoutes(h, &auth, &rate, discardLogger())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestMenu(t *testing.T) {
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, config.AuthConfig{}, config.RateLimitConfig{})

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menu", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	body := decode(t, rec)
	nodes := body["nodes"].([]any)
	require.Len(t, nodes, 1)
	node := nodes[0].(map[string]any)
	assert.Equal(t, "directory", node["type"])
	assert.Equal(t, "group=Title", node["action"])
}

func TestBrowse_DecodesAction(t *testing.T) {
	fb := &fakeBrowser{listing: &domain.Listing{Title: "All recordings"}}
	routes := newTestRoutes(t, fb, &fakeCache{}, config.AuthConfig{}, config.RateLimitConfig{})

	action := domain.BrowseAction{
		Plan:   domain.GroupPlan{"Category", "Title"},
		Filter: domain.FilterSpec{}.With("Channel.ChannelName", "BBC One"),
		Offset: 20,
	}
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/browse?"+action.Encode(), nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, action, fb.got)
}

func TestBrowse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"malformed filter", "filter=novalue", nil, http.StatusBadRequest, "invalid_input"},
		{"negative offset", "offset=-1", nil, http.StatusBadRequest, "invalid_input"},
		{"bracket in group key", "group=Title%5B", nil, http.StatusBadRequest, "invalid_input"},
		{"path expression in filter key", "filter=%24..Title=x", nil, http.StatusBadRequest, "invalid_input"},
		{"backend down", "group=Title", fmt.Errorf("%w: connection refused", domain.ErrFetchFailed), http.StatusBadGateway, "fetch_failed"},
		{"backend timeout", "group=Title", fmt.Errorf("%w: %w", domain.ErrFetchFailed, domain.ErrTimeout), http.StatusBadGateway, "fetch_failed"},
		{"not found", "group=Title", domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unexpected", "group=Title", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes := newTestRoutes(t, &fakeBrowser{err: tt.err}, &fakeCache{}, config.AuthConfig{}, config.RateLimitConfig{})

			rec := httptest.NewRecorder()
			routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/browse?"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["error"])
		})
	}
}

func TestRecordingRefresh(t *testing.T) {
	cache := &fakeCache{}
	routes := newTestRoutes(t, &fakeBrowser{}, cache, config.AuthConfig{}, config.RateLimitConfig{})

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/recordings/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cache.invalidated)

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidate(t *testing.T) {
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, config.AuthConfig{}, config.RateLimitConfig{})
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/validate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Contains(t, body["message"], "mythbox:6544")

	failing := &fakeCache{checkErr: fmt.Errorf("%w: %w", domain.ErrFetchFailed, domain.ErrIncompatibleVersion)}
	routes = newTestRoutes(t, &fakeBrowser{}, failing, config.AuthConfig{}, config.RateLimitConfig{})
	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/validate", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Could not reach a compatible MythTV backend at mythbox:6544. Check the server and port settings.", body["message"])
	assert.Contains(t, body["error"], "incompatible backend version")
}

func TestHealthAndMetrics(t *testing.T) {
	auth := config.AuthConfig{Enabled: true, AdminUser: "admin", AdminPass: "secret"}
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, auth, config.RateLimitConfig{})

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAuth(t *testing.T) {
	auth := config.AuthConfig{
		Enabled:   true,
		AdminUser: "admin",
		AdminPass: "secret",
		LocalNets: []string{"192.168.1.0/24"},
	}
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, auth, config.RateLimitConfig{})

	tests := []struct {
		name   string
		remote string
		user   string
		pass   string
		status int
	}{
		{"remote without credentials", "203.0.113.7:4000", "", "", http.StatusUnauthorized},
		{"remote wrong password", "203.0.113.7:4000", "admin", "nope", http.StatusUnauthorized},
		{"remote with credentials", "203.0.113.7:4000", "admin", "secret", http.StatusOK},
		{"loopback", "127.0.0.1:4000", "", "", http.StatusOK},
		{"local net", "192.168.1.20:4000", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
			req.RemoteAddr = tt.remote
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			routes.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	rate := config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, config.AuthConfig{}, rate)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
		req.RemoteAddr = "198.51.100.1:5000"
		last = httptest.NewRecorder()
		routes.ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode(t, last)["error"])

	// Other clients are not affected.
	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	req.RemoteAddr = "198.51.100.2:5000"
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_KeepsClientValue(t *testing.T) {
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, config.AuthConfig{}, config.RateLimitConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCompressionMiddleware(t *testing.T) {
	routes := newTestRoutes(t, &fakeBrowser{}, &fakeCache{}, config.AuthConfig{}, config.RateLimitConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

// TestBrowse_EndToEnd drives the real browser and cache through the API and
// follows the returned actions.
func TestBrowse_EndToEnd(t *testing.T) {
	program := func(title, subtitle, category string) domain.RawRecording {
		return domain.NewRawRecording(map[string]any{
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
		})
	}
	source := ports.NewMockRecordingSource().WithRecordings([]domain.RawRecording{
		program("Sherlock Holmes - A Scandal in Belgravia", "", "Drama"),
		program("Sherlock Holmes - The Hounds of Baskerville", "", "Drama"),
		program("Nature Documentary", "Oceans", "Documentary"),
	})
	cache := services.NewRecordingService(source, time.Minute)
	cache.SetLogger(discardLogger())

	loc, err := i18n.New("en")
	require.NoError(t, err)
	client := mythtv.NewClient("mythbox", 6544, mythtv.Options{})
	res := resources.NewResolver("", "", discardLogger())
	acc := catalog.NewAccessor(catalog.AccessorOptions{TitleSplitting: true, Splitters: []string{"-"}, StripChars: catalog.DefaultStripChars})
	proj := catalog.NewProjector(catalog.DefaultProjectorOptions(), client, res, loc, discardLogger())
	browser := catalog.NewBrowser(cache, acc, proj, res, client, loc, catalog.Options{PageSize: 10, Paging: true}, discardLogger())

	routes := SetupRoutes(NewHandler(discardLogger(), browser, cache, loc, client.Addr()), &config.AuthConfig{}, &config.RateLimitConfig{}, discardLogger())

	get := func(query string) map[string]any {
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/browse?"+query, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode(t, rec)
	}

	top := get("group=Title")
	nodes := top["nodes"].([]any)
	require.Len(t, nodes, 2)

	var dirAction string
	for _, n := range nodes {
		node := n.(map[string]any)
		if node["type"] == "directory" {
			assert.Equal(t, "Sherlock Holmes (2)", node["title"])
			dirAction = node["action"].(string)
		}
	}
	require.NotEmpty(t, dirAction)

	inner := get(dirAction)
	leaves := inner["nodes"].([]any)
	require.Len(t, leaves, 2)
	for _, n := range leaves {
		leaf := n.(map[string]any)
		assert.Equal(t, "leaf", leaf["type"])
		assert.True(t, strings.HasPrefix(leaf["playback_url"].(string), "http://mythbox:6544/Content/GetRecording?"))
	}
	assert.Equal(t, int64(1), source.Fetches(), "second listing must be served from the cache")
}
