package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const userAgent = "SebasIT-CentrisImporter/1.0"

// FetchError is the terminal failure of a fetch loop: every attempt was
// exhausted without a complete download. It carries the last underlying
// cause. Nothing has been written to the catalog when it is returned.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("bundle fetch failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SnapshotDownload pairs the downloaded bundle bytes with the resolved
// provenance fields recorded in the audit log.
type SnapshotDownload struct {
	Data     []byte
	Date     time.Time
	URL      string
	Filename string
}

// Fetcher downloads the newest bundle with bounded retry. The feed publishes
// on an unpredictable schedule around midnight, so each attempt re-runs
// discovery: a bundle appearing mid-window is picked up without waiting for
// the next invocation.
type Fetcher struct {
	Client      *http.Client
	BaseURL     string
	MaxAttempts int
	RetryDelay  time.Duration
	// SaveDir, when set, receives a copy of the raw bundle bytes under the
	// resolved filename for audit and replay.
	SaveDir string
	// Now is the clock used to resolve "today"; overridable in tests.
	Now func() time.Time
}

// NewFetcher returns a Fetcher with the operator defaults: 12 attempts,
// 5 minutes apart.
func NewFetcher(baseURL string) *Fetcher {
	return &Fetcher{
		Client:      &http.Client{Timeout: 60 * time.Second},
		BaseURL:     baseURL,
		MaxAttempts: 12,
		RetryDelay:  5 * time.Minute,
		Now:         time.Now,
	}
}

// Fetch resolves and downloads the newest available bundle. The sleep
// between attempts is a fixed interval, not a backoff; the bottleneck is the
// publisher's upload job, not our request rate.
func (f *Fetcher) Fetch(ctx context.Context) (*SnapshotDownload, error) {
	attempts := f.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := f.fetchOnce(ctx, attempt, attempts)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		log.Printf("[try %d/%d] failed: %v", attempt, attempts, err)

		if attempt < attempts {
			select {
			case <-time.After(f.RetryDelay):
			case <-ctx.Done():
				return nil, &FetchError{Attempts: attempt, Err: ctx.Err()}
			}
		}
	}

	return nil, &FetchError{Attempts: attempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, attempt, attempts int) (*SnapshotDownload, error) {
	today := f.Now()

	url, date, err := Discover(ctx, f.Client, f.BaseURL, today)
	if err != nil {
		return nil, err
	}
	name := BundleName(date)
	log.Printf("[try %d/%d] latest=%s -> %s", attempt, attempts, name, url)
	log.Printf("remote size ~ %d bytes", f.remoteSize(ctx, url))

	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}
	log.Printf("downloaded %d bytes (%s)", len(data), name)

	if f.SaveDir != "" {
		if err := f.saveCopy(name, data); err != nil {
			log.Printf("warning: could not save bundle copy: %v", err)
		}
	}

	return &SnapshotDownload{Data: data, Date: date, URL: url, Filename: name}, nil
}

// remoteSize probes the bundle's Content-Length ahead of the download so the
// log shows what to expect. Best effort; 0 when the probe fails or the
// header is absent.
func (f *Fetcher) remoteSize(ctx context.Context, url string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ContentLength < 0 {
		return 0
	}
	return resp.ContentLength
}

// download streams the response body into memory.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download body: %w", err)
	}
	return data, nil
}

func (f *Fetcher) saveCopy(name string, data []byte) error {
	if err := os.MkdirAll(f.SaveDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(f.SaveDir, name), data, 0o644)
}
