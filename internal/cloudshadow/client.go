package cloudshadow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// Transport-layer retry tuning, mirroring the teacher's graph.Client
// constants: base 1s, factor 2x, cap 60s, ±25% jitter, 5 attempts.
const (
	maxTransportRetries = 5
	baseBackoff         = 1 * time.Second
	maxBackoff          = 60 * time.Second
	backoffFactor       = 2.0
	jitterFraction      = 0.25
)

// TokenSource provides bearer tokens for cloud authentication.
type TokenSource interface {
	Token() (string, error)
}

// Client implements shadow.CloudClient over HTTP.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       TokenSource
	logger      *slog.Logger
	rateLimiter *shadow.RateLimiter
	sleepFunc   func(ctx context.Context, d time.Duration) error
}

var _ shadow.CloudClient = (*Client)(nil)

// NewClient builds a cloud shadow client. rateLimiter may be nil
// (unlimited outbound rate).
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, rateLimiter *shadow.RateLimiter, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		token:       token,
		logger:      logger,
		rateLimiter: rateLimiter,
		sleepFunc:   sleepCtx,
	}
}

func shadowPath(key shadow.ShadowKey) string {
	if key.ShadowName == "" {
		return fmt.Sprintf("/things/%s/shadow", key.ThingName)
	}

	return fmt.Sprintf("/things/%s/shadow/name/%s", key.ThingName, key.ShadowName)
}

// GetThingShadow fetches the cloud shadow document, returning (nil, nil) if
// it does not exist.
func (c *Client) GetThingShadow(ctx context.Context, key shadow.ShadowKey) (*shadow.ShadowDocument, error) {
	resp, err := c.doRetry(ctx, http.MethodGet, shadowPath(key), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil //nolint:nilnil // absence is the expected "no cloud shadow yet" case
		}

		return nil, err
	}
	defer resp.Body.Close()

	return decodeDocument(key, resp.Body)
}

// UpdateThingShadow pushes payload as the new cloud shadow state.
func (c *Client) UpdateThingShadow(ctx context.Context, key shadow.ShadowKey, payload []byte) (*shadow.ShadowDocument, error) {
	resp, err := c.doRetry(ctx, http.MethodPost, shadowPath(key), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeDocument(key, resp.Body)
}

// DeleteThingShadow deletes the cloud shadow document.
func (c *Client) DeleteThingShadow(ctx context.Context, key shadow.ShadowKey) error {
	resp, err := c.doRetry(ctx, http.MethodDelete, shadowPath(key), nil)
	if err != nil {
		if isNotFound(err) {
			return nil
		}

		return err
	}

	return resp.Body.Close()
}

func decodeDocument(key shadow.ShadowKey, body io.Reader) (*shadow.ShadowDocument, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &shadow.CloudError{Message: "reading response body", Err: err}
	}

	var wire struct {
		State     json.RawMessage `json:"state"`
		Metadata  json.RawMessage `json:"metadata"`
		Version   int64           `json:"version"`
		Timestamp int64           `json:"timestamp"`
	}

	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &shadow.CloudError{Message: "decoding shadow document", Err: err}
	}

	return &shadow.ShadowDocument{
		ThingName:  key.ThingName,
		ShadowName: key.ShadowName,
		State:      []byte(wire.State),
		Metadata:   []byte(wire.Metadata),
		Version:    wire.Version,
		Timestamp:  wire.Timestamp,
	}, nil
}

// doRetry applies the outbound rate limit, then executes the request with
// transport-level retry on transient failures (spec.md §4.11). Non-2xx
// responses are classified into *shadow.CloudError.
func (c *Client) doRetry(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.WaitOutbound(ctx); err != nil {
			return nil, &shadow.CloudError{Message: "outbound rate limit wait", Err: err}
		}
	}

	var payload []byte

	if body != nil {
		var err error

		payload, err = io.ReadAll(body)
		if err != nil {
			return nil, &shadow.CloudError{Message: "reading request body", Err: err}
		}
	}

	var lastErr error

	for attempt := 0; attempt < maxTransportRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		resp, err := c.doOnce(ctx, method, path, reader)
		if err != nil {
			lastErr = &shadow.CloudError{Message: "transport error", Err: err}

			if sleepErr := c.sleepFunc(ctx, c.calcBackoff(attempt)); sleepErr != nil {
				return nil, &shadow.CloudError{Message: "interrupted during retry wait", Err: sleepErr}
			}

			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		cloudErr := c.classifyResponse(resp)
		resp.Body.Close()

		if !isRetryable(cloudErr.StatusCode) {
			return nil, cloudErr
		}

		lastErr = cloudErr

		c.logger.Warn("retrying cloud request after HTTP error",
			"method", method, "path", path, "status", cloudErr.StatusCode, "attempt", attempt)

		if sleepErr := c.sleepFunc(ctx, c.calcBackoff(attempt)); sleepErr != nil {
			return nil, &shadow.CloudError{Message: "interrupted during retry wait", Err: sleepErr}
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.token != nil {
		token, tokenErr := c.token.Token()
		if tokenErr != nil {
			return nil, tokenErr
		}

		req.Header.Set("Authorization", "Bearer "+token)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) classifyResponse(resp *http.Response) *shadow.CloudError {
	data, _ := io.ReadAll(resp.Body)
	sentinel := classifyStatus(resp.StatusCode)

	return &shadow.CloudError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
		Message:    string(data),
		Err:        sentinel,
	}
}

func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1)
	backoff += jitter

	return time.Duration(backoff)
}

func isNotFound(err error) bool {
	var ce *shadow.CloudError

	return errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
