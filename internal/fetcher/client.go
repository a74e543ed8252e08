package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"paddlecast/internal/forecast"
)

const defaultUserAgent = "paddlecast/1.0"

// maxBodyBytes bounds what a single upstream response may return.
const maxBodyBytes = 8 << 20

// ClientOptions parameterise the shared HTTP client.
type ClientOptions struct {
	Timeout          time.Duration
	UserAgent        string
	MaxRetries       int
	MinWait          time.Duration
	MaxWait          time.Duration
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// Client performs GET requests against one upstream through a circuit
// breaker and maps failures to forecast.DataFetchError.
type Client struct {
	source  string
	opts    ClientOptions
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
	sleep   func(context.Context, time.Duration) error
}

// statusError carries a non-2xx status through the breaker.
type statusError struct {
	code       int
	body       string
	retryAfter string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("upstream returned %d", e.code)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.code, e.body)
}

// NewClient builds a client named after source. The name keys the breaker
// and every error the client returns.
func NewClient(source string, opts ClientOptions, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MinWait <= 0 {
		opts.MinWait = 500 * time.Millisecond
	}
	if opts.MaxWait < opts.MinWait {
		opts.MaxWait = 10 * time.Second
	}
	if opts.BreakerThreshold == 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	threshold := opts.BreakerThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A 4xx is the caller's fault, not the upstream's.
			var se *statusError
			if errors.As(err, &se) && se.code < 500 && se.code != http.StatusTooManyRequests {
				return true
			}
			return err == nil
		},
	})

	return &Client{
		source:  source,
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
		breaker: breaker,
		logger:  logger.With().Str("component", "http_client").Str("source", source).Logger(),
		sleep:   sleepContext,
	}
}

// Source returns the upstream name.
func (c *Client) Source() string {
	return c.source
}

// GetJSON fetches endpoint with query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	target := endpoint
	if len(query) > 0 {
		target = endpoint + "?" + query.Encode()
	}

	body, err := c.get(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &forecast.DataShapeError{Source: c.source, Field: "body", Err: fmt.Errorf("decode %s: %w", target, err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	attempts := 1 + c.opts.MaxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.do(ctx, target)
		})
		if err == nil {
			return body, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		var se *statusError
		if errors.As(err, &se) && se.code < 500 && se.code != http.StatusTooManyRequests {
			break
		}
		if attempt == attempts-1 {
			break
		}

		wait := c.backoff(attempt, se)
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("wait", wait).Msg("upstream request failed, retrying")
		if err := c.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}
	return nil, c.mapError(target, lastErr)
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{
			code:       resp.StatusCode,
			body:       truncate(strings.TrimSpace(string(payload)), 200),
			retryAfter: resp.Header.Get("Retry-After"),
		}
	}
	return payload, nil
}

// backoff honours Retry-After when present, otherwise exponential with full
// jitter clamped to [MinWait, MaxWait].
func (c *Client) backoff(attempt int, se *statusError) time.Duration {
	if se != nil && se.retryAfter != "" {
		if seconds, err := strconv.Atoi(se.retryAfter); err == nil && seconds > 0 {
			return min(time.Duration(seconds)*time.Second, c.opts.MaxWait)
		}
	}
	ceiling := math.Min(float64(c.opts.MaxWait), float64(c.opts.MinWait)*math.Pow(2, float64(attempt)))
	wait := time.Duration(rand.Float64() * ceiling)
	if wait < c.opts.MinWait {
		wait = c.opts.MinWait
	}
	return wait
}

func (c *Client) mapError(target string, err error) error {
	fe := &forecast.DataFetchError{Source: c.source, URL: redact(target), Err: err}
	var se *statusError
	if errors.As(err, &se) {
		fe.StatusCode = se.code
	}
	return fe
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// redact drops the query string so coordinates and keys stay out of logs.
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
