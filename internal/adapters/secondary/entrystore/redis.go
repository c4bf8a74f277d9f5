// Package entrystore keeps the recording cache entry outside the process so
// that several instances can share one upstream fetch.
package entrystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/redis/go-redis/v9"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// DefaultKey is the Redis key holding the entry.
const DefaultKey = "mythrecordings:recordings"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Key      string // Key holding the entry, DefaultKey when empty
}

// RedisStore stores the entry as one JSON document.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.EntryStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis. Stored entries expire after ttl.
func NewRedisStore(ctx context.Context, cfg RedisConfig, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connected to Redis entry store", slog.String("addr", cfg.Addr), slog.Int("db", cfg.DB))
	return newRedisStore(client, cfg.Key, ttl, logger), nil
}

func newRedisStore(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key, ttl: ttl, logger: logger}
}

// Load returns the stored entry, or nil when none is stored.
func (s *RedisStore) Load(ctx context.Context) (*domain.CacheEntry, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", s.key, err)
	}
	return entry, nil
}

// Store replaces the stored entry.
func (s *RedisStore) Store(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil {
		return s.Clear(ctx)
	}
	if err := s.client.Set(ctx, s.key, encodeEntry(entry), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	s.logger.Debug("stored recordings entry", slog.String("key", s.key), slog.Int("recordings", len(entry.Recordings)))
	return nil
}

// Clear drops the stored entry.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

// HealthCheck checks if Redis is available.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeEntry(entry *domain.CacheEntry) []byte {
	recs := make([]any, 0, len(entry.Recordings))
	for _, r := range entry.Recordings {
		recs = append(recs, r.Tree())
	}
	return []byte(oj.JSON(map[string]any{
		"fetched_at": entry.FetchedAt.UTC().Format(time.RFC3339Nano),
		"recordings": recs,
	}))
}

func decodeEntry(data []byte) (*domain.CacheEntry, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("entry is not an object")
	}
	raw, _ := doc["fetched_at"].(string)
	fetchedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("fetched_at: %w", err)
	}
	list, _ := doc["recordings"].([]any)
	entry := &domain.CacheEntry{
		FetchedAt:  fetchedAt,
		Recordings: make([]domain.RawRecording, 0, len(list)),
	}
	for _, item := range list {
		tree, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("recording is not an object")
		}
		entry.Recordings = append(entry.Recordings, domain.NewRawRecording(tree))
	}
	return entry, nil
}
