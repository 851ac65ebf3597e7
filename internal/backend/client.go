// Package backend is the storefront's client for the commerce backend:
// payments, auth and product lookups, all JSON over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Endpoint paths relative to the backend base URL.
const (
	PathReady   = "/payments/kakaopay/ready"
	PathApprove = "/payments/kakaopay/approve"
	PathMe      = "/auth/me"
	PathProduct = "/products/"
)

const maxBodyBytes = 64 << 10

// ErrInvalidJSON is returned when a 2xx response body cannot be decoded.
var ErrInvalidJSON = errors.New("backend returned invalid JSON")

// StatusError is a non-2xx backend response. Body is the raw response text.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend status %d", e.Status)
	}
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Body)
}

// Credentials are the browser cookies forwarded on credentialed calls.
type Credentials []*http.Cookie

type ReadyRequest struct {
	Amount int64 `json:"amount"`
}

// ReadyResponse carries the provider redirect target. OrderID is set when
// the backend reports the order it created for the payment.
type ReadyResponse struct {
	RedirectURL string `json:"redirectUrl"`
	OrderID     string `json:"orderId,omitempty"`
}

type ApproveRequest struct {
	OrderID string `json:"orderId"`
	PgToken string `json:"pg_token"`
}

type Me struct {
	Role string `json:"role"`
}

type Product struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Desc     string `json:"desc"`
	Price    int64  `json:"price"`
	ImageURL string `json:"imageUrl"`
}

// Client calls the backend. A zero timeout leaves calls unbounded; the
// request context is the only way to abandon one.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

// Ready asks the backend to prepare a payment of amount.
func (c *Client) Ready(ctx context.Context, amount int64) (*ReadyResponse, error) {
	var out ReadyResponse
	if err := c.do(ctx, http.MethodPost, PathReady, ReadyRequest{Amount: amount}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve finalises the payment session of orderID with the provider token.
func (c *Client) Approve(ctx context.Context, orderID, pgToken string, creds Credentials) error {
	return c.do(ctx, http.MethodPost, PathApprove, ApproveRequest{OrderID: orderID, PgToken: pgToken}, creds, nil)
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context, creds Credentials) (*Me, error) {
	var out Me
	if err := c.do(ctx, http.MethodGet, PathMe, nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Product fetches a product by id.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, PathProduct+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, creds Credentials, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range creds {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	c.log.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
