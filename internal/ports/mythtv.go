package ports

import (
	"context"

	"github.com/githubixx/mythrecordings-go/internal/domain"
)

// RecordingSource defines the interface for fetching the recorded-program list
// from a MythTV backend.
type RecordingSource interface {
	// FetchRecordingList retrieves the recording list. maxCount <= 0 means all.
	// Failures wrap domain.ErrFetchFailed.
	FetchRecordingList(ctx context.Context, maxCount int) (*domain.RecordingList, error)

	// Ping checks that the backend is reachable and compatible
	Ping(ctx context.Context) error
}

// EntryStore holds the single cached recording payload.
type EntryStore interface {
	// Load returns the current entry, or nil when nothing is cached
	Load(ctx context.Context) (*domain.CacheEntry, error)

	// Store replaces the current entry
	Store(ctx context.Context, entry *domain.CacheEntry) error

	// Clear drops the current entry
	Clear(ctx context.Context) error
}

// Locator builds backend URLs for a recording.
type Locator interface {
	// PlaybackURL returns the stream locator for a recording
	PlaybackURL(ref domain.RecordingRef) string

	// PreviewURL returns a preview image URL for a recording
	PreviewURL(chanID, startTs string) string

	// ArtworkURL returns series artwork (coverart, fanart, banner) for an inetref
	ArtworkURL(inetref, artType string) string
}
