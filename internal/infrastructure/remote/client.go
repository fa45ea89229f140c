package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vehiclematch/backend/internal/domain"
	"github.com/vehiclematch/backend/internal/infrastructure/csvcatalog"
)

const (
	maxAttempts     = 3
	maxCatalogBytes = 64 << 20
	userAgent       = "vehiclematch/1.0"
)

// Client downloads CSV catalogs over HTTP
type Client struct {
	httpClient  *http.Client
	url         string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	backoff     func(attempt int) time.Duration
	maxBytes    int64
}

// NewClient creates a client for the catalog at url. requestsPerMinute <= 0
// disables pacing.
func NewClient(url string, requestsPerMinute int, logger *zap.Logger) *Client {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		url:         url,
		rateLimiter: rate.NewLimiter(limit, 1),
		logger:      logger,
		backoff:     exponentialBackoff,
		maxBytes:    maxCatalogBytes,
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return 500 * time.Millisecond * time.Duration(1<<(attempt-1))
}

// Load implements domain.CatalogSource
func (c *Client) Load(ctx context.Context) ([]domain.Vehicle, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	vehicles, err := csvcatalog.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.url, err)
	}

	c.logger.Info("remote catalog loaded", zap.String("url", c.url), zap.Int("vehicles", len(vehicles)))
	return vehicles, nil
}

// fetch retries transport errors and 5xx responses
func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		body, retry, err := c.do(ctx)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}

		c.logger.Warn("catalog request failed",
			zap.String("url", c.url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%w: %v", domain.ErrRemoteCatalogFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, c.url)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrRemoteCatalogFailure, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: status %d", domain.ErrRemoteCatalogFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading body: %v", domain.ErrRemoteCatalogFailure, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, false, fmt.Errorf("%w: catalog exceeds %d bytes", domain.ErrRemoteCatalogFailure, c.maxBytes)
	}
	return body, false, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
