// internal/adapters/salesapi/client.go
package salesapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tripquote/internal/adapters/observability"
	"tripquote/internal/domain"
)

const service = "salesapi"

// Client talks to the sales backend: quotation create, lead update and the
// handover mail trigger.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("sales API base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var _ domain.SalesAPI = (*Client)(nil)

// ---- Public API ----

// CreateQuotation posts the finished quotation. It is not idempotent, so
// only refusals the server makes before doing any work (429, 503) are
// retried.
func (c *Client) CreateQuotation(ctx context.Context, s domain.Submission) (domain.QuotationReceipt, error) {
	var out domain.QuotationReceipt
	if err := c.do(ctx, http.MethodPost, "/lead-managment/quotations", s, &out, refusalsOnly); err != nil {
		return domain.QuotationReceipt{}, fmt.Errorf("create quotation: %w", err)
	}
	if out.QuoteID == "" {
		return domain.QuotationReceipt{}, fmt.Errorf("create quotation: %w", ErrMalformed)
	}
	if out.TripID == "" {
		out.TripID = s.TripID
	}
	return out, nil
}

// UpdateLead records a new quotation or status on the lead. Safe to retry.
func (c *Client) UpdateLead(ctx context.Context, u domain.LeadUpdate) error {
	if err := c.do(ctx, http.MethodPut, "/lead-managment/create-quote", u, nil, transient); err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return nil
}

// SendHandover asks the backend to mail the operations team about a
// converted trip.
func (c *Client) SendHandover(ctx context.Context, tripID, quoteID string) error {
	body := map[string]string{"TripId": tripID, "QuoteId": quoteID}
	if err := c.do(ctx, http.MethodPost, "/handovermail-manager", body, nil, refusalsOnly); err != nil {
		return fmt.Errorf("send handover: %w", err)
	}
	return nil
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("salesapi: not found")
	ErrUnauthorized = errors.New("salesapi: unauthorized")
	ErrForbidden    = errors.New("salesapi: forbidden")
	ErrMalformed    = errors.New("salesapi: malformed response")
)

// retryPolicy decides which statuses are worth another attempt.
type retryPolicy func(status int) bool

func transient(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func refusalsOnly(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// do sends a JSON request with client-side rate limiting and retries,
// decoding the response into out when it is non-nil. Retry-After is
// honored when provided.
func (c *Client) do(ctx context.Context, method, path string, in, out any, retry retryPolicy) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	url := c.base + path
	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tripquote/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, path, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			// a lost connection may or may not have reached the server
			if method == http.MethodPut && i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, path, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			defer resp.Body.Close()
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case retry(resp.StatusCode):
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff: 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
