package openfda

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
	"github.com/verdictapp/backend/internal/metrics"
)

const (
	maxAttempts        = 3
	defaultBackoffBase = 500 * time.Millisecond
	maxErrorBody       = 512
)

// Client handles communication with the openFDA food enforcement API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	backoffBase time.Duration
	debug       bool
}

// NewClient creates a new openFDA client. apiKey may be empty.
func NewClient(apiKey, baseURL string) *Client {
	// openFDA allows 240 requests per minute per key
	limiter := rate.NewLimiter(rate.Limit(4), 4)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		backoffBase: defaultBackoffBase,
	}
}

// SetDebug enables or disables per-attempt request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// backoff returns the wait before the given retry, doubling from base: 500ms, 1s, 2s, ...
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

// buildSearch turns free text into a product_description query; anything
// already in field:value form is passed through.
func buildSearch(search string) string {
	search = strings.TrimSpace(search)
	if search == "" || strings.Contains(search, ":") {
		return search
	}
	escaped := strings.ReplaceAll(search, `"`, "")
	return fmt.Sprintf(`product_description:"%s"`, escaped)
}

func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Verdict/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRecallFeedFailure, err)
	}
	return resp, nil
}

// SearchRecalls returns up to limit enforcement reports matching search.
// An empty search lists the most recent reports.
func (c *Client) SearchRecalls(ctx context.Context, search string, limit int) ([]domain.Recall, error) {
	log := logging.Ctx(ctx)

	params := url.Values{}
	if q := buildSearch(search); q != "" {
		params.Set("search", q)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/food/enforcement.json?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, backoff(c.backoffBase, attempt-1)); err != nil {
				metrics.RecallFeedRequests.WithLabelValues("cancelled").Inc()
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			metrics.RecallFeedRequests.WithLabelValues("cancelled").Inc()
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		if c.debug {
			log.Debug().Int("attempt", attempt).Str("search", search).Int("limit", limit).Msg("Requesting recall feed")
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				metrics.RecallFeedRequests.WithLabelValues("cancelled").Inc()
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("Recall feed request error")
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// openFDA answers 404 when nothing matches the search
			metrics.RecallFeedRequests.WithLabelValues("empty").Inc()
			return []domain.Recall{}, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			log.Warn().Int("attempt", attempt).Int("status", resp.StatusCode).Msg("Recall feed transient error")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRecallFeedFailure, resp.StatusCode)
			continue

		case resp.StatusCode != http.StatusOK:
			metrics.RecallFeedRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrRecallFeedFailure, resp.StatusCode, truncate(body, maxErrorBody))
		}

		if readErr != nil {
			lastErr = fmt.Errorf("%w: %v", domain.ErrRecallFeedFailure, readErr)
			continue
		}

		var payload enforcementResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			metrics.RecallFeedRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrRecallFeedFailure, err)
		}

		recalls := mapToRecalls(payload.Results)
		metrics.RecallFeedRequests.WithLabelValues("success").Inc()
		if c.debug {
			log.Debug().Int("recalls", len(recalls)).Int("total", payload.Meta.Results.Total).Msg("Recall feed responded")
		}
		return recalls, nil
	}

	metrics.RecallFeedRequests.WithLabelValues("error").Inc()
	log.Error().Err(lastErr).Str("search", search).Msg("All recall feed attempts failed")
	return nil, lastErr
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		return string(body[:n]) + "..."
	}
	return string(body)
}
