// Package fetch downloads the recipe repository archive and unpacks its
// dish documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// Client downloads repository snapshots from a GitHub compatible API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	log        *slog.Logger
}

// NewClient creates a Client. An empty token sends unauthenticated requests.
func NewClient(baseURL, token string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: Backoff,
		log:     log,
	}
}

// ArchiveURL returns the zipball endpoint for owner/repo.
func (c *Client) ArchiveURL(owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s/zipball/", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))
}

// Download streams the default branch archive of owner/repo into dst and
// returns the number of bytes written. Rate limiting and server errors are
// retried with backoff.
func (c *Client) Download(ctx context.Context, owner, repo string, dst io.Writer) (int64, error) {
	var lastErr error
	for attempt := range MaxRetries {
		var n int64
		n, lastErr = c.download(ctx, owner, repo, dst)
		if lastErr == nil || !IsRetryable(lastErr) {
			return n, lastErr
		}
		c.log.Warn("retryable download error", "repo", owner+"/"+repo, "attempt", attempt, "error", lastErr)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, fmt.Errorf("download %s/%s: giving up after %d attempts: %w", owner, repo, MaxRetries, lastErr)
}

func (c *Client) download(ctx context.Context, owner, repo string, dst io.Writer) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ArchiveURL(owner, repo), nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("User-Agent", "cookgest")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("download %s/%s: status %d: %s", owner, repo, resp.StatusCode, string(respBody))
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read archive: %w", err)
	}
	return n, nil
}

// DownloadFile downloads the archive to path, replacing it only on success.
func (c *Client) DownloadFile(ctx context.Context, owner, repo, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := c.Download(ctx, owner, repo, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("write archive: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("store archive: %w", err)
	}
	c.log.Info("archive downloaded", "repo", owner+"/"+repo, "path", path, "bytes", n)
	return n, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
