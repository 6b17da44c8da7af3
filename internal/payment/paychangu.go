package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the PayChangu production API.
const DefaultBaseURL = "https://api.paychangu.com"

// PayChanguClient talks to the PayChangu REST API.
type PayChanguClient struct {
	client    *http.Client
	baseURL   string
	secretKey string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewPayChanguClient creates a new PayChangu client.
func NewPayChanguClient(baseURL, secretKey string, timeout time.Duration, logger zerolog.Logger) *PayChanguClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &PayChanguClient{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		timeout:   timeout,
		logger:    logger.With().Str("component", "paychangu").Logger(),
	}
}

// Initiate opens a hosted payment session.
func (c *PayChanguClient) Initiate(ctx context.Context, in InitiateRequest) (*InitiateResponse, error) {
	const op = "initiate"

	body, err := json.Marshal(struct {
		InitiateRequest
		Amount json.Number `json:"amount"`
	}{InitiateRequest: in, Amount: json.Number(in.Amount.String())})
	if err != nil {
		return nil, &GatewayError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	var out InitiateResponse
	if err := c.do(ctx, op, http.MethodPost, c.baseURL+"/payment", body, &out); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("tx_ref", in.TxRef).
		Str("status", out.Status).
		Msg("payment session requested")

	return &out, nil
}

// Verify fetches the gateway's record of a payment.
func (c *PayChanguClient) Verify(ctx context.Context, txRef string) (*Verification, error) {
	const op = "verify"

	var out Verification
	endpoint := c.baseURL + "/payment/verify/" + url.PathEscape(txRef)
	if err := c.do(ctx, op, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("tx_ref", txRef).
		Str("status", out.Status).
		Str("payment_status", out.Data.Status).
		Msg("payment verified")

	return &out, nil
}

func (c *PayChanguClient) do(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &GatewayError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&failure)
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: failure.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}
