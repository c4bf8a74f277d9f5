package ports

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/githubixx/mythrecordings-go/internal/domain"
)

// MockRecordingSource is a flexible test double for RecordingSource with
// function field customization.
//
// Usage with function fields:
//
//	mock := &ports.MockRecordingSource{
//	    FetchRecordingListFunc: func(ctx context.Context, maxCount int) (*domain.RecordingList, error) {
//	        return nil, domain.ErrFetchFailed
//	    },
//	}
//
// Usage with builder pattern:
//
//	mock := ports.NewMockRecordingSource().WithRecordings(recs)
type MockRecordingSource struct {
	FetchRecordingListFunc func(ctx context.Context, maxCount int) (*domain.RecordingList, error)
	PingFunc               func(ctx context.Context) error

	mu         sync.RWMutex
	version    string
	recordings []domain.RawRecording
	fetches    atomic.Int64
}

var _ RecordingSource = (*MockRecordingSource)(nil)

// NewMockRecordingSource creates a mock reporting a compatible backend version.
func NewMockRecordingSource() *MockRecordingSource {
	return &MockRecordingSource{
		version:    "0.28.20160309-1",
		recordings: []domain.RawRecording{},
	}
}

// WithRecordings sets the recordings returned by FetchRecordingList.
func (m *MockRecordingSource) WithRecordings(recordings []domain.RawRecording) *MockRecordingSource {
	m.mu.Lock()
	m.recordings = recordings
	m.mu.Unlock()
	return m
}

// WithVersion sets the reported backend version.
func (m *MockRecordingSource) WithVersion(version string) *MockRecordingSource {
	m.mu.Lock()
	m.version = version
	m.mu.Unlock()
	return m
}

// Fetches returns how often FetchRecordingList was called.
func (m *MockRecordingSource) Fetches() int64 {
	return m.fetches.Load()
}

func (m *MockRecordingSource) FetchRecordingList(ctx context.Context, maxCount int) (*domain.RecordingList, error) {
	m.fetches.Add(1)
	if m.FetchRecordingListFunc != nil {
		return m.FetchRecordingListFunc(ctx, maxCount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.recordings
	if maxCount > 0 && len(recs) > maxCount {
		recs = recs[:maxCount]
	}
	return &domain.RecordingList{
		Version:    m.version,
		Recordings: append([]domain.RawRecording(nil), recs...),
	}, nil
}

func (m *MockRecordingSource) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return ctx.Err()
}
