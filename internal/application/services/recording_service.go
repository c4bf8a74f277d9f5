package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/metrics"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// Single-flight keys. Fetches that populate the cache and fetches that must
// not are never merged.
const (
	flightRefresh = "refresh"
	flightNoCache = "nocache"
)

// RecordingService is the read-through cache in front of the backend
// recording list. It holds at most one entry. Concurrent refreshes are
// collapsed into a single upstream fetch; callers that stop waiting do not
// cancel the fetch for the others.
type RecordingService struct {
	source ports.RecordingSource
	group  singleflight.Group

	mu           sync.RWMutex
	store        ports.EntryStore
	entry        *domain.CacheEntry
	generation   uint64 // bumped whenever the entry is discarded
	enabled      bool
	cacheExpiry  time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewRecordingService creates a new recording service
func NewRecordingService(source ports.RecordingSource, cacheExpiry time.Duration) *RecordingService {
	return &RecordingService{
		source:       source,
		enabled:      true,
		cacheExpiry:  cacheExpiry,
		fetchTimeout: 30 * time.Second,
		logger:       slog.Default(),
		now:          time.Now,
	}
}

// SetCacheExpiry updates the recordings cache expiry.
// If expiry <= 0, caching is disabled.
func (s *RecordingService) SetCacheExpiry(expiry time.Duration) {
	s.mu.Lock()
	s.cacheExpiry = expiry
	s.entry = nil
	s.generation++
	s.mu.Unlock()
}

// SetEnabled turns caching on or off.
func (s *RecordingService) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// SetFetchTimeout bounds each upstream fetch. If timeout <= 0, fetches are
// bounded only by the caller.
func (s *RecordingService) SetFetchTimeout(timeout time.Duration) {
	s.mu.Lock()
	s.fetchTimeout = timeout
	s.mu.Unlock()
}

// SetEntryStore moves the cache entry to store, e.g. to share it between
// instances. A nil store keeps the entry in process.
func (s *RecordingService) SetEntryStore(store ports.EntryStore) {
	s.mu.Lock()
	s.store = store
	s.entry = nil
	s.generation++
	s.mu.Unlock()
}

// SetLogger sets the logger.
func (s *RecordingService) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

func (s *RecordingService) settings() (enabled bool, expiry, timeout time.Duration, store ports.EntryStore, logger *slog.Logger) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled, s.cacheExpiry, s.fetchTimeout, s.store, s.logger
}

// GetAllRecordings returns the full recording list, from the cache while the
// entry is younger than the expiry. maxCount > 0 fetches at most maxCount
// recordings directly from the backend; such partial lists are never cached.
// Upstream failures wrap domain.ErrFetchFailed and are never answered with
// an expired entry.
func (s *RecordingService) GetAllRecordings(ctx context.Context, maxCount int) ([]domain.RawRecording, error) {
	enabled, expiry, _, _, _ := s.settings()

	if maxCount > 0 {
		metrics.ObserveCacheLookup("bypass")
		list, err := s.fetch(ctx, maxCount)
		if err != nil {
			return nil, err
		}
		recs := list.Recordings
		if len(recs) > maxCount {
			recs = recs[:maxCount]
		}
		return slices.Clone(recs), nil
	}

	// If caching is disabled, always fetch fresh data.
	if !enabled || expiry <= 0 {
		metrics.ObserveCacheLookup("bypass")
		return s.shared(ctx, flightNoCache)
	}

	if entry := s.load(ctx); entry.Fresh(s.now(), expiry) {
		metrics.ObserveCacheLookup("hit")
		return slices.Clone(entry.Recordings), nil
	}
	metrics.ObserveCacheLookup("miss")
	return s.shared(ctx, flightRefresh)
}

// shared joins or starts the fetch for key. The fetch runs detached from ctx
// so that one caller giving up does not fail the others; it is bounded by the
// fetch timeout instead.
func (s *RecordingService) shared(ctx context.Context, key string) ([]domain.RawRecording, error) {
	_, _, timeout, _, _ := s.settings()
	detached := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (any, error) {
		gen := s.currentGeneration()
		fctx := detached
		if timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(detached, timeout)
			defer cancel()
		}
		list, err := s.fetch(fctx, 0)
		if err != nil {
			return nil, err
		}
		if key == flightRefresh {
			s.save(fctx, &domain.CacheEntry{Recordings: list.Recordings, FetchedAt: s.now()}, gen)
		}
		return list.Recordings, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.RawRecording)), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, ctx.Err())
	}
}

func (s *RecordingService) fetch(ctx context.Context, maxCount int) (*domain.RecordingList, error) {
	_, _, _, _, logger := s.settings()

	start := time.Now()
	list, err := s.source.FetchRecordingList(ctx, maxCount)
	took := time.Since(start)
	metrics.ObserveFetch(err, took)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		}
		logger.Error("failed to fetch recording list", slog.Any("error", err), slog.Duration("duration", took))
		return nil, err
	}
	logger.Debug("fetched recording list",
		slog.Int("recordings", len(list.Recordings)),
		slog.String("version", list.Version),
		slog.Duration("duration", took))
	return list, nil
}

// load returns the current entry. Store failures count as a miss.
func (s *RecordingService) load(ctx context.Context) *domain.CacheEntry {
	_, _, _, store, logger := s.settings()
	if store == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.entry
	}
	entry, err := store.Load(ctx)
	if err != nil {
		logger.Warn("failed to load cached recordings", slog.Any("error", err))
		return nil
	}
	return entry
}

func (s *RecordingService) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// save stores entry unless the cache was invalidated after the fetch for gen
// started.
func (s *RecordingService) save(ctx context.Context, entry *domain.CacheEntry, gen uint64) {
	s.mu.Lock()
	if s.generation != gen {
		logger := s.logger
		s.mu.Unlock()
		logger.Debug("discarding recording list fetched before invalidation")
		return
	}
	store, logger := s.store, s.logger
	if store == nil {
		s.entry = entry
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if err := store.Store(ctx, entry); err != nil {
		logger.Warn("failed to store cached recordings", slog.Any("error", err))
	}
}

// InvalidateCache clears the recording cache. A refresh already in flight
// does not store its result, and later callers start a new fetch.
func (s *RecordingService) InvalidateCache(ctx context.Context) error {
	s.mu.Lock()
	s.entry = nil
	s.generation++
	store := s.store
	s.mu.Unlock()
	s.group.Forget(flightRefresh)
	if store == nil {
		return nil
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cached recordings: %w", err)
	}
	return nil
}

// CheckBackend verifies that the backend is reachable and compatible.
// Failures wrap domain.ErrFetchFailed.
func (s *RecordingService) CheckBackend(ctx context.Context) error {
	_, _, timeout, _, _ := s.settings()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.source.Ping(ctx); err != nil {
		if errors.Is(err, domain.ErrFetchFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	return nil
}
