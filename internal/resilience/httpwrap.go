package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// HTTPClient wraps an http.Client with per-attempt timeouts, jittered
// exponential retries and an optional circuit breaker. Vendor plan adapters
// and the payment gateway client share it.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	Target      string
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int
	Timeout     time.Duration
	Logger      *zerolog.Logger
	// RetryStatuses lists non-5xx statuses worth retrying, e.g. 429.
	RetryStatuses []int
	// Fallback, when set, receives the final error instead of the caller.
	Fallback func(context.Context, *http.Request, error) (*http.Response, error)
}

// NewHTTPClient builds a client for target with a breaker that opens at a 50%
// failure share over the last ten calls.
func NewHTTPClient(base *http.Client, target string, maxAttempts int, timeout time.Duration) HTTPClient {
	if base == nil {
		base = &http.Client{}
	}
	return HTTPClient{
		Client:        base,
		Breaker:       NewBreaker(BreakerConfig{Target: target, MinRequests: 5, Window: 10}),
		Target:        target,
		BaseBackoff:   200 * time.Millisecond,
		MaxBackoff:    5 * time.Second,
		MaxAttempts:   maxAttempts,
		Timeout:       timeout,
		RetryStatuses: []int{http.StatusTooManyRequests},
	}
}

// Do sends req, retrying transport errors, 5xx responses and RetryStatuses.
// The request body is buffered so it can be replayed. The returned response
// body is fully read into memory. An open breaker fails the call with
// ErrOpenCircuit without touching the network.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	attempt := 0
	op := func() error {
		attempt++
		if !cl.Breaker.Allow(ctx) {
			return backoff.Permanent(ErrOpenCircuit)
		}
		r, err := cl.attempt(ctx, req, body)
		if err == nil && r.StatusCode < 500 && !slices.Contains(cl.RetryStatuses, r.StatusCode) {
			cl.Breaker.Report(ctx, true)
			resp = r
			return nil
		}
		cl.Breaker.Report(ctx, false)
		if err != nil {
			return err
		}
		return fmt.Errorf("resilience: upstream status %s", r.Status)
	}
	notify := func(err error, wait time.Duration) {
		UpstreamRetries.WithLabelValues(cl.targetLabel()).Inc()
		if cl.Logger != nil {
			cl.Logger.Warn().Err(err).
				Str("target", cl.targetLabel()).
				Str("url", req.URL.Redacted()).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("upstream_retry")
		}
	}

	err = backoff.RetryNotify(op, backoff.WithContext(cl.policy(), ctx), notify)
	if err == nil {
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if cl.Fallback != nil {
		return cl.Fallback(ctx, req, err)
	}
	return nil, err
}

func (cl HTTPClient) policy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cl.BaseBackoff
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = 100 * time.Millisecond
	}
	if cl.MaxBackoff > 0 {
		eb.MaxInterval = cl.MaxBackoff
	}
	eb.RandomizationFactor = 0.2
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	retries := cl.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(eb, uint64(retries))
}

// attempt performs one exchange bounded by Timeout and buffers the response.
func (cl HTTPClient) attempt(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	if cl.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cl.Timeout)
		defer cancel()
	}
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	}
	resp, err := cl.Client.Do(clone)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

func (cl HTTPClient) targetLabel() string {
	if cl.Target != "" {
		return cl.Target
	}
	return "default"
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
