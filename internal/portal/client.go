// Package portal adapts government tax portal HTTP APIs to the
// ports.FilingPortal contract: HMAC-signed requests, error classification
// into transient versus permanent, and a circuit breaker guarding a flapping
// portal.
package portal

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taxpilot/internal/orchestrator/ports"
	"taxpilot/pkg/platform/circuit"
)

// Config carries the portal API credentials and endpoint.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client submits filings to a portal's REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

// probeInterval is how often an open circuit lets one request through to
// test whether the portal recovered.
const probeInterval = 30 * time.Second

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New("filing-portal", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		logger:     logger,
		now:        time.Now,
	}
}

// Submit posts the payload to the portal. Network failures, timeouts, 408,
// 429 and 5xx responses are transient; other 4xx responses are permanent
// rejections carrying the portal's reason.
func (c *Client) Submit(ctx context.Context, sub ports.Submission) (string, error) {
	if !c.allowRequest() {
		return "", ports.Transient(fmt.Errorf("portal %s circuit open", sub.Portal))
	}

	confirmation, err := c.post(ctx, sub)
	if err != nil {
		var rejection *ports.PermanentRejection
		if !errors.As(err, &rejection) {
			c.recordFailure(ctx)
			return "", err
		}
		// Rejections are the portal working as intended, not an outage.
		c.recordSuccess(ctx)
		return "", err
	}
	c.recordSuccess(ctx)
	return confirmation, nil
}

func (c *Client) post(ctx context.Context, sub ports.Submission) (string, error) {
	url := fmt.Sprintf("%s/v1/filings/%s", c.cfg.BaseURL, sub.Portal)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(sub.Payload))
	if err != nil {
		return "", fmt.Errorf("build portal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", sub.IdempotencyKey)
	c.sign(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ports.Transient(fmt.Errorf("portal request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", ports.Transient(fmt.Errorf("read portal response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var accepted struct {
			ConfirmationID string `json:"confirmation_id"`
		}
		if err := json.Unmarshal(body, &accepted); err != nil || accepted.ConfirmationID == "" {
			return "", ports.Transient(fmt.Errorf("portal returned %d without a confirmation id", resp.StatusCode))
		}
		return accepted.ConfirmationID, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return "", ports.Transient(fmt.Errorf("portal returned %d", resp.StatusCode))
	default:
		return "", &ports.PermanentRejection{Reason: rejectionReason(resp.StatusCode, body)}
	}
}

// sign sets the authentication headers: the signature is an HMAC-SHA256 of
// the API key concatenated with the unix timestamp, keyed by the API secret.
func (c *Client) sign(req *http.Request) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(c.cfg.APIKey + timestamp))

	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
}

// allowRequest is the circuit gate: closed circuits always pass, open ones
// let a single probe through per probe interval.
func (c *Client) allowRequest() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastProbe) < probeInterval {
		return false
	}
	c.lastProbe = now
	return true
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
		c.logger.WarnContext(ctx, "portal circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "portal circuit closed", "breaker", c.breaker.Name())
	}
}

func rejectionReason(status int, body []byte) string {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.ErrorDescription != "" {
			return payload.ErrorDescription
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("portal returned %d", status)
}
