package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"priceflow/config"
)

const defaultSnapshotTimeout = 10 * time.Second

func newSnapshotClient(cfg config.SnapshotConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getSnapshot performs the adapter's single authenticated GET and returns
// the response body. The API key is resolved from the configured environment
// variable at call time so rotated keys take effect without a restart.
func getSnapshot(ctx context.Context, client *http.Client, cfg config.SnapshotConfig) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if cfg.APIKeyHeader != "" && cfg.APIKeyEnv != "" {
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			req.Header.Set(cfg.APIKeyHeader, key)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s: %s", ErrUpstream, resp.Status, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
