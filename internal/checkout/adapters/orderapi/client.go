// Package orderapi is the HTTP adapter for the external order service,
// the sole source of truth for final pricing and order persistence.
package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

const headerIdempotencyKey = "X-Idempotency-Key"

// Client implements ports.OrderService over the order service's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.OrderService = (*Client)(nil)

// New builds a Client for the order service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// errorBody is the order service's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateOrder posts the normalized order request and classifies the
// outcome into the checkout failure taxonomy:
//
//   - transport errors   -> NETWORK (retryable, draft preserved)
//   - 401 / 403          -> AUTH (redirect to login, draft preserved)
//   - 5xx                -> SERVER
//   - other non-2xx      -> SERVER with the business-rule message the
//     order service returned (e.g. "title out of stock")
func (c *Client) CreateOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("orderapi: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("orderapi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerIdempotencyKey, req.IdempotencyKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, domain.NewNetworkFailure(fmt.Errorf("orderapi: create order: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var result ports.OrderResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, domain.NewServerFailure("", fmt.Errorf("orderapi: decode response: %w", err))
		}
		return &result, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.NewAuthFailure("Your session has expired. Sign in to place the order")

	case resp.StatusCode >= 500:
		return nil, domain.NewServerFailure("", fmt.Errorf("orderapi: order service returned %d", resp.StatusCode))

	default:
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		return nil, domain.NewServerFailure(msg, fmt.Errorf("orderapi: order service returned %d", resp.StatusCode))
	}
}
