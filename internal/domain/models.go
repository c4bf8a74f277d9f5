package domain

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ohler55/ojg/jp"
)

// Field paths consumed from a backend program record.
const (
	FieldTitle        = "Title"
	FieldSubTitle     = "SubTitle"
	FieldCategory     = "Category"
	FieldChanID       = "Channel.ChanId"
	FieldChannelName  = "Channel.ChannelName"
	FieldStartTime    = "StartTime"
	FieldEndTime      = "EndTime"
	FieldRecStartTs   = "Recording.StartTs"
	FieldRecEndTs     = "Recording.EndTs"
	FieldRecGroup     = "Recording.RecGroup"
	FieldStorageGroup = "Recording.StorageGroup"
	FieldFileName     = "FileName"
	FieldFileSize     = "FileSize"
	FieldDescription  = "Description"
	FieldInetref      = "Inetref"
)

// MandatoryFields must be present for a recording to be listed.
var MandatoryFields = []string{
	FieldTitle,
	FieldChanID,
	FieldStartTime,
	FieldEndTime,
	FieldRecStartTs,
	FieldRecEndTs,
}

// RawRecording is one program record as delivered by the backend, kept as the
// decoded key/value tree. It is never modified after construction.
type RawRecording struct {
	tree map[string]any
}

// NewRawRecording wraps a decoded program object.
func NewRawRecording(tree map[string]any) RawRecording {
	return RawRecording{tree: tree}
}

// Tree returns the underlying document. Callers must treat it as read-only.
func (r RawRecording) Tree() map[string]any {
	return r.tree
}

// maxCompiledPaths bounds the path cache; paths beyond it are compiled per call.
const maxCompiledPaths = 256

var (
	compiledPaths     sync.Map // path -> jp.Expr
	compiledPathCount atomic.Int64
)

func compilePath(path string) (jp.Expr, error) {
	if x, ok := compiledPaths.Load(path); ok {
		return x.(jp.Expr), nil
	}
	expr := path
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid field path %q: %w", path, err)
	}
	if compiledPathCount.Load() < maxCompiledPaths {
		if _, loaded := compiledPaths.LoadOrStore(path, x); !loaded {
			compiledPathCount.Add(1)
		}
	}
	return x, nil
}

// Lookup returns the scalar text at a dotted field path such as
// "Recording.StartTs". Absent, null and non-scalar values yield ErrFieldNotFound.
func (r RawRecording) Lookup(path string) (string, error) {
	if r.tree == nil {
		return "", fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
	x, err := compilePath(path)
	if err != nil {
		return "", err
	}
	matches := x.Get(r.tree)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
	switch v := matches[0].(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrFieldNotFound, path)
	}
}

// Has reports whether path resolves to a scalar value.
func (r RawRecording) Has(path string) bool {
	_, err := r.Lookup(path)
	return err == nil
}

// RecordingList is the decoded result of one upstream fetch.
type RecordingList struct {
	Version    string
	Recordings []RawRecording
}

// CacheEntry is the single cached upstream payload.
type CacheEntry struct {
	Recordings []RawRecording
	FetchedAt  time.Time
}

// Fresh reports whether the entry may still be served at now.
func (e *CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	if e == nil || ttl <= 0 {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// RecordingRef identifies a recording for playback and preview URLs.
type RecordingRef struct {
	ChanID       string
	StartTs      string
	StorageGroup string
	FileName     string
}
