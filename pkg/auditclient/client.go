// Package auditclient is the fire-and-forget client every business service
// uses to emit audit events. Its one contract: a failure of the audit
// subsystem never propagates into the caller's business operation. Errors
// are logged to the caller's own logger and swallowed. No retries, no
// buffering: at-most-once delivery per call.
package auditclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 3 * time.Second

// Client posts audit events to the audit service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger failures are reported to. Defaults to
// slog.Default so a misconfigured caller still sees drops locally.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client for the audit service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// event mirrors the audit service's creatable fields. Kept local so the
// client stays dependency-free for its consumers.
type event struct {
	Service  string `json:"service"`
	Action   string `json:"action"`
	LogLevel string `json:"logLevel"`
	Message  string `json:"message"`
	EntityID string `json:"entityId,omitempty"`
	Source   string `json:"source,omitempty"`
}

// LogInfo emits an informational SYSTEM_EVENT record. Always returns nil
// control flow to the caller: delivery failure is logged and dropped.
func (c *Client) LogInfo(ctx context.Context, service, message, entityID string) {
	c.emit(ctx, event{
		Service:  service,
		Action:   "SYSTEM_EVENT",
		LogLevel: "INFO",
		Message:  message,
		EntityID: entityID,
	})
}

// LogError emits an ERROR-severity record with the same guarantee.
func (c *Client) LogError(ctx context.Context, service, message, entityID string) {
	c.emit(ctx, event{
		Service:  service,
		Action:   "SYSTEM_EVENT",
		LogLevel: "ERROR",
		Message:  message,
		EntityID: entityID,
	})
}

// LogInfoAsync delivers off the caller's goroutine entirely, for hot paths
// that do not want even a bounded synchronous wait. The delivery context is
// detached so the write survives the caller's request ending first.
func (c *Client) LogInfoAsync(ctx context.Context, service, message, entityID string) {
	go c.LogInfo(context.WithoutCancel(ctx), service, message, entityID)
}

// LogErrorAsync is the asynchronous variant of LogError.
func (c *Client) LogErrorAsync(ctx context.Context, service, message, entityID string) {
	go c.LogError(context.WithoutCancel(ctx), service, message, entityID)
}

// emit performs one delivery attempt. Every failure mode, network,
// validation, or storage, ends here: logged, counted against nothing, and
// never surfaced to the caller.
func (c *Client) emit(ctx context.Context, ev event) {
	body, err := json.Marshal(ev)
	if err != nil {
		c.drop(ctx, ev, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/audit/events", bytes.NewReader(body))
	if err != nil {
		c.drop(ctx, ev, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.drop(ctx, ev, err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		c.drop(ctx, ev, fmt.Errorf("audit service returned %d", resp.StatusCode))
	}
}

func (c *Client) drop(ctx context.Context, ev event, err error) {
	c.logger.WarnContext(ctx, "audit event dropped",
		"service", ev.Service,
		"message", ev.Message,
		"error", err,
	)
}
