// Package mythtv implements the recording source against the MythTV Services
// API of a master backend.
package mythtv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "mythrecordings"
	maxBodyBytes     = 64 << 20

	// Oldest backend whose program list carries the fields we consume.
	minMajor, minMinor = 0, 27
)

var (
	programsPath = jp.MustParseString("$.ProgramList.Programs[*]")
	versionPath  = jp.MustParseString("$.ProgramList.Version")
)

// Options configures the client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// RespectMasterBackendOverride selects storage group based playback URLs,
	// letting the master backend pick the host that serves the file.
	RespectMasterBackendOverride bool
}

// Client fetches recordings from a MythTV backend.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	userAgent       string
	respectOverride bool
}

var (
	_ ports.RecordingSource = (*Client)(nil)
	_ ports.Locator         = (*Client)(nil)
)

// NewClient creates a client for the backend at host:port.
func NewClient(host string, port int, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
	}
	return &Client{
		baseURL: &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port)),
			Path:   "/",
		},
		httpClient:      &http.Client{Timeout: opts.Timeout, Transport: transport},
		userAgent:       opts.UserAgent,
		respectOverride: opts.RespectMasterBackendOverride,
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Addr returns the backend host:port.
func (c *Client) Addr() string {
	return c.baseURL.Host
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.baseURL
	u.Path = "/" + strings.TrimLeft(path, "/")
	u.RawQuery = params.Encode()
	return u.String()
}

// FetchRecordingList retrieves Dvr/GetRecordedList. maxCount > 0 asks the
// backend for at most that many programs.
func (c *Client) FetchRecordingList(ctx context.Context, maxCount int) (*domain.RecordingList, error) {
	params := url.Values{}
	if maxCount > 0 {
		params.Set("Count", strconv.Itoa(maxCount))
	}
	body, err := c.get(ctx, c.endpoint("Dvr/GetRecordedList", params))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	list, err := parseRecordingList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	}
	return list, nil
}

// Ping fetches a single program to verify reachability and version.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.FetchRecordingList(ctx, 1)
	return err
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, req.URL.Path)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// parseRecordingList decodes a GetRecordedList document and checks the
// backend version.
func parseRecordingList(body []byte) (*domain.RecordingList, error) {
	doc, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse recording list: %w", err)
	}

	versions := versionPath.Get(doc)
	if len(versions) == 0 {
		return nil, errors.New("recording list has no ProgramList.Version")
	}
	version, _ := versions[0].(string)
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	programs := programsPath.Get(doc)
	list := &domain.RecordingList{
		Version:    version,
		Recordings: make([]domain.RawRecording, 0, len(programs)),
	}
	for _, p := range programs {
		tree, ok := p.(map[string]any)
		if !ok {
			continue
		}
		list.Recordings = append(list.Recordings, domain.NewRawRecording(tree))
	}
	return list, nil
}

// checkVersion requires major.minor >= 0.27. Versions look like
// "0.28.20160309-1" or "v29.1-20-gd8c3c0a".
func checkVersion(version string) error {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == '.' || r == '-' })
	if len(fields) < 1 {
		return fmt.Errorf("%w: %q", domain.ErrIncompatibleVersion, version)
	}
	major, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("%w: %q", domain.ErrIncompatibleVersion, version)
	}
	minor := 0
	if len(fields) > 1 {
		minor, _ = strconv.Atoi(fields[1])
	}
	if major > minMajor || (major == minMajor && minor >= minMinor) {
		return nil
	}
	return fmt.Errorf("%w: %q is older than %d.%d", domain.ErrIncompatibleVersion, version, minMajor, minMinor)
}

// PlaybackURL returns the stream URL for a recording.
func (c *Client) PlaybackURL(ref domain.RecordingRef) string {
	if c.respectOverride && ref.StorageGroup != "" && ref.FileName != "" {
		return c.endpoint("Content/GetFile", url.Values{
			"StorageGroup": {ref.StorageGroup},
			"FileName":     {ref.FileName},
		})
	}
	return c.endpoint("Content/GetRecording", url.Values{
		"ChanId":    {ref.ChanID},
		"StartTime": {ref.StartTs},
	})
}

// PreviewURL returns the backend generated preview image of a recording.
func (c *Client) PreviewURL(chanID, startTs string) string {
	return c.endpoint("Content/GetPreviewImage", url.Values{
		"ChanId":    {chanID},
		"StartTime": {startTs},
	})
}

// ArtworkURL returns series artwork of the given type (coverart, fanart,
// banner).
func (c *Client) ArtworkURL(inetref, artType string) string {
	return c.endpoint("Content/GetRecordingArtwork", url.Values{
		"Inetref": {inetref},
		"Type":    {artType},
	})
}
