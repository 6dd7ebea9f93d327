// Package httpx centralizes the HTTP concerns shared by every URL engine
// and HTTP-backed provider: a proxy-aware client, retryable-error
// classification, and an interruptible exponential backoff loop. Grounded
// on the teacher's internal/pkg/httpx helpers.
package httpx

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/platform/ctxutil"
)

// NewClient returns an *http.Client that honors HTTP_PROXY/HTTPS_PROXY/
// NO_PROXY via http.ProxyFromEnvironment, per spec §4.4 "Proxy discipline".
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// StatusCoder lets a provider-specific error report the HTTP status it
// carries, so IsRetryableError can classify it without type-switching on
// every provider's concrete error type.
type StatusCoder interface {
	HTTPStatusCode() int
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// ClassifyStatus maps an HTTP response status to the ccerr.Kind taxonomy
// used across URL engines (spec §4.4).
func ClassifyStatus(code int) ccerr.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ccerr.AuthError
	case code == http.StatusNotFound:
		return ccerr.NotFoundError
	case code == http.StatusTooManyRequests:
		return ccerr.RateLimitError
	case code >= 500:
		return ccerr.NetworkError
	case code >= 400:
		return ccerr.ParseError
	default:
		return ""
	}
}

func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	sleepFor := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleepFor = time.Duration(secs) * time.Second
			}
		}
	}
	if max > 0 && sleepFor > max {
		sleepFor = max
	}
	return sleepFor
}

// JitterSleep spreads retries by +/-20% so a fleet of concurrent segment
// transcriptions hitting the same backend don't retry in lockstep.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

// BackoffConfig parameterizes Retry's exponential backoff. BaseDelay is
// doubled after each attempt, capped at MaxDelay, up to MaxAttempts total
// tries (including the first).
type BackoffConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{MaxAttempts: 4, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping an interruptible
// exponential backoff between attempts, and stops early once fn returns
// a non-retryable error (per isRetryable if provided, otherwise
// IsRetryableError). The backoff sleep honors ctx cancellation (spec §5 "Retry
// backoffs are interruptible").
func Retry(ctx context.Context, cfg BackoffConfig, isRetryable func(error) bool, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctxutil.Done(ctx) {
			return ctx.Err()
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		retryable := IsRetryableError(err)
		if isRetryable != nil {
			retryable = isRetryable(err)
		}
		if !retryable || attempt == cfg.MaxAttempts {
			return lastErr
		}

		sleepFor := JitterSleep(delay)
		if sleepErr := ctxutil.Sleep(ctx, sleepFor); sleepErr != nil {
			return sleepErr
		}
		delay = time.Duration(math.Min(float64(delay*2), float64(maxDelay)))
	}
	return lastErr
}
