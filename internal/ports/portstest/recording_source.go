// Package portstest holds reusable conformance suites for port implementations.
package portstest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// SourceFactory creates a RecordingSource holding at least two recordings and
// returns a cleanup function.
type SourceFactory func() (ports.RecordingSource, func())

// RunRecordingSourceContractTests runs the contract suite against a RecordingSource
// implementation so that the HTTP client, mocks and fakes behave consistently.
func RunRecordingSourceContractTests(t *testing.T, factory SourceFactory) {
	t.Run("FetchAll", func(t *testing.T) { testFetchAll(t, factory) })
	t.Run("FetchMaxCount", func(t *testing.T) { testFetchMaxCount(t, factory) })
	t.Run("Ping", func(t *testing.T) { testPing(t, factory) })
	t.Run("ContextCancellation", func(t *testing.T) { testSourceContextCancellation(t, factory) })
}

func testFetchAll(t *testing.T, factory SourceFactory) {
	src, cleanup := factory()
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	list, err := src.FetchRecordingList(ctx, 0)
	if err != nil {
		t.Fatalf("FetchRecordingList failed: %v", err)
	}
	if list == nil {
		t.Fatal("FetchRecordingList returned nil list")
	}
	if len(list.Recordings) < 2 {
		t.Fatalf("expected at least 2 recordings, got %d", len(list.Recordings))
	}
	for i, rec := range list.Recordings {
		if _, err := rec.Lookup(domain.FieldTitle); err != nil {
			t.Errorf("recording %d: Title lookup: %v", i, err)
		}
	}
}

func testFetchMaxCount(t *testing.T, factory SourceFactory) {
	src, cleanup := factory()
	defer cleanup()

	list, err := src.FetchRecordingList(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchRecordingList(1) failed: %v", err)
	}
	if len(list.Recordings) != 1 {
		t.Errorf("expected 1 recording with maxCount=1, got %d", len(list.Recordings))
	}
}

func testPing(t *testing.T, factory SourceFactory) {
	src, cleanup := factory()
	defer cleanup()

	if err := src.Ping(context.Background()); err != nil {
		t.Errorf("Ping should succeed, got error: %v", err)
	}
}

func testSourceContextCancellation(t *testing.T, factory SourceFactory) {
	src, cleanup := factory()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.FetchRecordingList(ctx, 0)
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, domain.ErrFetchFailed) {
		t.Errorf("expected context.Canceled or ErrFetchFailed, got %v", err)
	}
}
