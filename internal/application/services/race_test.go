package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// TestRecordingService_ConcurrentCacheAccess tests concurrent reads against
// invalidation and expiry changes.
func TestRecordingService_ConcurrentCacheAccess(t *testing.T) {
	mock := ports.NewMockRecordingSource().WithRecordings(sampleRecordings("A", "B", "C"))
	service := NewRecordingService(mock, 5*time.Minute)
	ctx := context.Background()

	const goroutines = 20
	const iterations = 50

	var wg sync.WaitGroup
	wg.Add(goroutines * 3)

	// Concurrent readers
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				recs, err := service.GetAllRecordings(ctx, 0)
				if err != nil {
					t.Errorf("GetAllRecordings failed: %v", err)
					return
				}
				if len(recs) != 3 {
					t.Errorf("expected 3 recordings, got %d", len(recs))
					return
				}
			}
		}()
	}

	// Concurrent invalidation
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if err := service.InvalidateCache(ctx); err != nil {
					t.Errorf("InvalidateCache failed: %v", err)
					return
				}
			}
		}()
	}

	// Concurrent configuration changes
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				service.SetCacheExpiry(time.Duration(i+1) * time.Minute)
				service.SetEnabled(j%5 != 0)
			}
		}(i)
	}

	wg.Wait()
}

// TestRecordingService_ConcurrentPartialFetches tests that partial fetches
// running alongside full refreshes never leak into the cache.
func TestRecordingService_ConcurrentPartialFetches(t *testing.T) {
	mock := ports.NewMockRecordingSource().WithRecordings(sampleRecordings("A", "B", "C", "D"))
	service := NewRecordingService(mock, time.Hour)
	ctx := context.Background()

	const goroutines = 10

	var wg sync.WaitGroup
	wg.Add(goroutines * 2)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if recs, err := service.GetAllRecordings(ctx, 2); err != nil || len(recs) != 2 {
				t.Errorf("partial fetch: %d recordings, err=%v", len(recs), err)
			}
		}()
		go func() {
			defer wg.Done()
			if recs, err := service.GetAllRecordings(ctx, 0); err != nil || len(recs) != 4 {
				t.Errorf("full fetch: %d recordings, err=%v", len(recs), err)
			}
		}()
	}
	wg.Wait()
}
