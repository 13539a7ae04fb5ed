// Package client is the Go client for the review queue API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// TokenProvider supplies the bearer token for each request. Implementations
// typically wrap a session store or an OIDC token source.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Config holds review client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the review queue API
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenProvider
	logger  ectologger.Logger
}

// NewClient creates a new review API client
func NewClient(cfg Config, tokens TokenProvider, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// PendingItems fetches the user's pending review items
func (c *Client) PendingItems(ctx context.Context, filters models.PendingFilters) (*models.PendingItemsResponse, error) {
	filters.Normalize()

	query := url.Values{}
	query.Set("limit", strconv.Itoa(filters.Limit))
	query.Set("order_by", filters.OrderBy)
	query.Set("descending", strconv.FormatBool(filters.Descending))
	if filters.MinConfidence > 0 {
		query.Set("min_confidence", strconv.FormatFloat(filters.MinConfidence, 'f', -1, 64))
	}
	if filters.ItemType != nil && *filters.ItemType != "" {
		query.Set("type", *filters.ItemType)
	}

	data, err := c.do(ctx, http.MethodGet, "/api/v1/review/pending?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp models.PendingItemsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse pending items response: %w", err)
	}
	return &resp, nil
}

// ApproveItem approves a single review item
func (c *Client) ApproveItem(ctx context.Context, itemID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/review/approve", models.ApproveItemRequest{ItemID: itemID})
	return err
}

// RejectItem rejects a single review item with an optional reason
func (c *Client) RejectItem(ctx context.Context, itemID string, reason *string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/review/reject", models.RejectItemRequest{ItemID: itemID, Reason: reason})
	return err
}

// BatchApprove approves multiple review items. An empty id list is a no-op
// and makes no network call.
func (c *Client) BatchApprove(ctx context.Context, itemIDs []string) (*models.BatchResult, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	data, err := c.do(ctx, http.MethodPost, "/api/v1/review/batch-approve", models.BatchApproveRequest{ItemIDs: itemIDs})
	if err != nil {
		return nil, err
	}

	var result models.BatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse batch result: %w", err)
	}
	return &result, nil
}

// BatchReject rejects multiple review items with a shared optional reason.
// An empty id list is a no-op and makes no network call.
func (c *Client) BatchReject(ctx context.Context, itemIDs []string, reason *string) (*models.BatchResult, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	data, err := c.do(ctx, http.MethodPost, "/api/v1/review/batch-reject", models.BatchRejectRequest{ItemIDs: itemIDs, Reason: reason})
	if err != nil {
		return nil, err
	}

	var result models.BatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse batch result: %w", err)
	}
	return &result, nil
}

// UserStats fetches the user's review counters
func (c *Client) UserStats(ctx context.Context) (*models.UserStats, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/review/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats models.UserStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats response: %w", err)
	}
	return &stats, nil
}

// do executes a request and returns the data section of the response
// envelope. The token is resolved first so a missing credential fails
// before any network traffic.
func (c *Client) do(ctx context.Context, method string, path string, body any) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &AuthError{Message: err.Error()}
	}
	if token == "" {
		return nil, &AuthError{Message: "no token available"}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if traceParent := tracing.GetTraceParent(ctx); traceParent != "" {
		req.Header.Set("traceparent", traceParent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", method, path)
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	var envelope models.APIResponse
	parsed := json.Unmarshal(data, &envelope) == nil

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Message: envelopeMessage(&envelope, parsed, "token rejected")}
	case resp.StatusCode == http.StatusForbidden:
		return nil, &PermissionError{Message: envelopeMessage(&envelope, parsed, "access denied")}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		serr := &ServerError{StatusCode: resp.StatusCode, Code: models.ErrCodeInternalError, Message: envelopeMessage(&envelope, parsed, http.StatusText(resp.StatusCode))}
		if parsed && envelope.Error != nil {
			serr.Code = envelope.Error.Code
		}
		return nil, serr
	}

	if !parsed || !envelope.Success {
		return nil, &ServerError{StatusCode: resp.StatusCode, Code: models.ErrCodeInternalError, Message: "malformed response envelope"}
	}

	return envelope.Data, nil
}

func envelopeMessage(envelope *models.APIResponse, parsed bool, fallback string) string {
	if parsed && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return fallback
}
