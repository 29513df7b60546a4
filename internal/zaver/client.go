package zaver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/commercekit/zaver-gateway/internal/tracing"
)

const (
	productionBaseURL = "https://api.zaver.com"
	testBaseURL       = "https://api.test.zaver.com"

	defaultTimeout = 30 * time.Second
)

// Client is the interface to the Zaver checkout and refund APIs.
// Implementations must be safe for concurrent use.
type Client interface {
	CreatePayment(ctx context.Context, req *PaymentCreationRequest) (*PaymentStatusResponse, error)
	GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatusResponse, error)
	UpdatePayment(ctx context.Context, paymentID string, req *PaymentUpdateRequest) (*PaymentStatusResponse, error)
	CapturePayment(ctx context.Context, paymentID string, req *PaymentCaptureRequest) (*PaymentCaptureResponse, error)
	CancelPayment(ctx context.Context, paymentID string) (*PaymentStatusResponse, error)
	CreateRefund(ctx context.Context, req *RefundCreationRequest) (*RefundResponse, error)
	ApproveRefund(ctx context.Context, refundID string, req *RefundUpdateRequest) (*RefundResponse, error)
	GetPaymentMethods(ctx context.Context, market string) (*PaymentMethodsResponse, error)
}

// HTTPClient talks to the Zaver REST API over HTTPS.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *HTTPClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// NewHTTPClient creates a Zaver API client. When testMode is true the client
// targets Zaver's test environment.
func NewHTTPClient(apiKey string, testMode bool, opts ...Option) *HTTPClient {
	baseURL := productionBaseURL
	if testMode {
		baseURL = testBaseURL
	}
	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePayment opens a new payment session.
func (c *HTTPClient) CreatePayment(ctx context.Context, req *PaymentCreationRequest) (*PaymentStatusResponse, error) {
	var resp PaymentStatusResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/v1/payments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPaymentStatus fetches the current state of a payment.
func (c *HTTPClient) GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatusResponse, error) {
	var resp PaymentStatusResponse
	path := "/checkout/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePayment amends an existing payment session.
func (c *HTTPClient) UpdatePayment(ctx context.Context, paymentID string, req *PaymentUpdateRequest) (*PaymentStatusResponse, error) {
	var resp PaymentStatusResponse
	path := "/checkout/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, http.MethodPut, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CapturePayment captures a payment in full or in part.
func (c *HTTPClient) CapturePayment(ctx context.Context, paymentID string, req *PaymentCaptureRequest) (*PaymentCaptureResponse, error) {
	var resp PaymentCaptureResponse
	path := "/checkout/v1/payments/" + url.PathEscape(paymentID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelPayment cancels an uncaptured payment.
func (c *HTTPClient) CancelPayment(ctx context.Context, paymentID string) (*PaymentStatusResponse, error) {
	var resp PaymentStatusResponse
	path := "/checkout/v1/payments/" + url.PathEscape(paymentID) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRefund opens a refund against a payment. The refund still requires
// approval before execution.
func (c *HTTPClient) CreateRefund(ctx context.Context, req *RefundCreationRequest) (*RefundResponse, error) {
	var resp RefundResponse
	if err := c.do(ctx, http.MethodPost, "/refund/v1/refunds", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ApproveRefund approves a pending refund for execution.
func (c *HTTPClient) ApproveRefund(ctx context.Context, refundID string, req *RefundUpdateRequest) (*RefundResponse, error) {
	var resp RefundResponse
	path := "/refund/v1/refunds/" + url.PathEscape(refundID) + "/approval"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPaymentMethods lists the payment methods available in a market.
func (c *HTTPClient) GetPaymentMethods(ctx context.Context, market string) (*PaymentMethodsResponse, error) {
	var resp PaymentMethodsResponse
	path := "/checkout/v1/payment-methods"
	if market != "" {
		path += "?market=" + url.QueryEscape(market)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, endSpan := tracing.StartProviderSpan(ctx, method+" "+path)
	defer func() { endSpan(err) }()

	var (
		reqBody io.Reader
		rawBody []byte
	)
	if body != nil {
		var err error
		rawBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(rawBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to zaver failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode:   resp.StatusCode,
			RequestBody:  string(rawBody),
			ResponseBody: string(respBody),
		}
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &payload) == nil {
			apiErr.Message = payload.Message
			if apiErr.Message == "" {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}
