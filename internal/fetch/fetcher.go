package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"priceflow/logger"
)

// Status classifies the outcome of a single fetch attempt.
type Status int

const (
	// Downloaded means the body was written to the destination path.
	Downloaded Status = iota
	// Skipped means the destination already existed and no request was made.
	Skipped
	// NotFound means the upstream answered 404; nothing was written.
	NotFound
	// Failed means a transport error or non-success response occurred.
	Failed
)

func (s Status) String() string {
	switch s {
	case Downloaded:
		return "downloaded"
	case Skipped:
		return "skipped"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports the outcome of fetching one URL.
type Result struct {
	URL    string
	Dest   string
	Status Status
	Err    error
}

// Fetcher downloads a single resource to a destination file. A destination
// that already exists short-circuits to Skipped; historical archives are
// assumed immutable once published upstream. No retries are attempted.
type Fetcher struct {
	client *http.Client
	log    *logger.Log
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    logger.GetLogger(),
	}
}

// Fetch is safe for concurrent use as long as destination paths are disjoint.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) Result {
	log := f.log.WithComponent("fetcher").WithFields(logger.Fields{"url": url, "dest": dest})

	if _, err := os.Stat(dest); err == nil {
		log.Debug("destination already exists, skipping download")
		return Result{URL: url, Dest: dest, Status: Skipped}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{URL: url, Dest: dest, Status: Failed, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("download request failed")
		return Result{URL: url, Dest: dest, Status: Failed, Err: fmt.Errorf("request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.Debug("file does not exist upstream")
		return Result{URL: url, Dest: dest, Status: NotFound}
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		log.WithError(err).Warn("download request failed")
		return Result{URL: url, Dest: dest, Status: Failed, Err: err}
	}

	if err := writeBody(dest, resp.Body); err != nil {
		log.WithError(err).Warn("failed to persist download")
		return Result{URL: url, Dest: dest, Status: Failed, Err: err}
	}

	log.Debug("downloaded file")
	return Result{URL: url, Dest: dest, Status: Downloaded}
}

func writeBody(dest string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("write destination file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close destination file: %w", err)
	}
	return nil
}
