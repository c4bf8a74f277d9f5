package ports

// ResourceResolver turns logical resource names and image URLs into
// displayable references, falling back when a resource is unusable.
type ResourceResolver interface {
	Resource(name string) string
	Image(rawURL, fallback string) string
}

// Localizer formats a message key in the active locale.
type Localizer interface {
	Sprintf(key string, args ...any) string
}
