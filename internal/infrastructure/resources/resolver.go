// Package resources maps logical icon and artwork names to displayable keys.
package resources

import (
	"log/slog"
	"net/url"
	"os"
	"path"
)

// Logical resource names used by the browser.
const (
	IconDefault       = "icon-default.png"
	IconSeries        = "icon-series.png"
	IconCategory      = "icon-category.png"
	IconChannel       = "icon-channel.png"
	IconRecGroup      = "icon-recgroup.png"
	IconDate          = "icon-date.png"
	IconMore          = "icon-more.png"
	ArtDefault        = "art-default.jpg"
	BackgroundDefault = "background-default.jpg"
)

// Resolver resolves names against the files present in a resource directory.
// Without a directory every name is accepted as-is.
type Resolver struct {
	prefix   string
	known    map[string]struct{}
	fallback string
}

// NewResolver scans dir once. A missing or unreadable directory is logged and
// leaves the resolver in pass-through mode.
func NewResolver(dir, prefix string, logger *slog.Logger) *Resolver {
	r := &Resolver{prefix: prefix, fallback: IconDefault}
	if dir == "" {
		return r
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("resource directory unavailable, using names as-is",
			slog.String("dir", dir), slog.Any("error", err))
		return r
	}
	r.known = make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			r.known[e.Name()] = struct{}{}
		}
	}
	return r
}

// Resource returns the reference for name, or the default icon when name is
// not among the known resources.
func (r *Resolver) Resource(name string) string {
	if name == "" {
		name = r.fallback
	}
	if r.known != nil {
		if _, ok := r.known[name]; !ok {
			name = r.fallback
		}
	}
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}

// Image returns rawURL when it is an absolute http(s) URL, otherwise the
// resolved fallback resource.
func (r *Resolver) Image(rawURL, fallback string) string {
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return rawURL
		}
	}
	return r.Resource(fallback)
}
