package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/resources"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLocator struct{}

func (fakeLocator) PlaybackURL(ref domain.RecordingRef) string {
	return "http://backend:6544/Content/GetRecording?" + url.Values{
		"ChanId": {ref.ChanID}, "StartTime": {ref.StartTs},
	}.Encode()
}

func (fakeLocator) PreviewURL(chanID, startTs string) string {
	return "http://backend:6544/Content/GetPreviewImage?" + url.Values{
		"ChanId": {chanID}, "StartTime": {startTs},
	}.Encode()
}

func (fakeLocator) ArtworkURL(inetref, artType string) string {
	return "http://backend:6544/Content/GetRecordingArtwork?" + url.Values{
		"Inetref": {inetref}, "Type": {artType},
	}.Encode()
}

type stubProvider struct {
	recs  []domain.RawRecording
	err   error
	calls int
}

func (p *stubProvider) GetAllRecordings(ctx context.Context, maxCount int) ([]domain.RawRecording, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.recs, nil
}

// rec builds a complete program record. Overrides are applied as top-level or
// dotted keys ("Recording.RecGroup"); a nil value deletes the field.
func rec(title, subtitle string, overrides map[string]any) domain.RawRecording {
	tree := map[string]any{
		"Title":       title,
		"SubTitle":    subtitle,
		"Category":    "Drama",
		"StartTime":   "2024-03-09T20:00:00Z",
		"EndTime":     "2024-03-09T21:30:00Z",
		"FileName":    "1001_20240309200000.ts",
		"FileSize":    "123456789",
		"Description": "",
		"Inetref":     "",
		"Channel": map[string]any{
			"ChanId":      "1001",
			"ChannelName": "BBC One",
		},
		"Recording": map[string]any{
			"StartTs":      "2024-03-09T20:00:00Z",
			"EndTs":        "2024-03-09T21:30:00Z",
			"RecGroup":     "Default",
			"StorageGroup": "Default",
		},
	}
	for k, v := range overrides {
		parent, leaf := tree, k
		if group, field, ok := strings.Cut(k, "."); ok {
			parent, leaf = tree[group].(map[string]any), field
		}
		if v == nil {
			delete(parent, leaf)
			continue
		}
		parent[leaf] = v
	}
	return domain.NewRawRecording(tree)
}

func newTestAccessor() *Accessor {
	return NewAccessor(AccessorOptions{
		TitleSplitting: true,
		Splitters:      []string{"-", ":"},
		CategoryAliases: AliasTable{
			{"Series", "series", "SERIES"},
		},
	})
}

func newTestProjector(t *testing.T) *Projector {
	t.Helper()
	loc, err := i18n.New("en")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	return NewProjector(DefaultProjectorOptions(), fakeLocator{}, resources.NewResolver("", "", discardLogger()), loc, discardLogger())
}

func newTestBrowser(t *testing.T, provider RecordingProvider, opts Options) *Browser {
	t.Helper()
	loc, err := i18n.New("en")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	res := resources.NewResolver("", "", discardLogger())
	b := NewBrowser(provider, newTestAccessor(), newTestProjector(t), res, fakeLocator{}, loc, opts, discardLogger())
	b.now = func() time.Time { return testNow }
	return b
}
