package imepay

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Transaction response codes returned by the IME Pay API.
const (
	CodeSuccess   = 0
	CodeFailed    = 1
	CodeError     = 2
	CodeCancelled = 3
)

// ErrUpstream wraps any failure talking to the IME Pay API. Callers must not
// mutate local payment state when they see it.
var ErrUpstream = errors.New("imepay upstream unavailable")

// Config holds IME Pay API configuration
type Config struct {
	BaseURL      string // e.g. https://stg.imepay.com.np:7979
	MerchantCode string
	APIUser      string
	APIPassword  string
	Module       string
	Timeout      time.Duration
}

// Client represents IME Pay payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates new IME Pay API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// TokenResponse represents the GetToken API response
type TokenResponse struct {
	ResponseCode int    `json:"ResponseCode"`
	TokenID      string `json:"TokenId"`
	RefID        string `json:"RefId"`
}

// ConfirmRequest represents the Confirm API request
type ConfirmRequest struct {
	MerchantCode  string `json:"MerchantCode"`
	RefID         string `json:"RefId"`
	TokenID       string `json:"TokenId"`
	TransactionID string `json:"TransactionId"`
	Msisdn        string `json:"Msisdn"`
}

// ConfirmResponse represents the Confirm API response
type ConfirmResponse struct {
	ResponseCode        int    `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	TransactionID       string `json:"TransactionId"`
	RefID               string `json:"RefId"`
}

// NewRefID generates a unique payment reference identifier
func NewRefID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("REF-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}

// GetToken requests a checkout token for the given amount and reference id
func (c *Client) GetToken(ctx context.Context, amount float64, refID string) (*TokenResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(refID) == "" {
		return nil, fmt.Errorf("validation error: ref_id must be non-empty")
	}

	body := map[string]string{
		"MerchantCode": c.config.MerchantCode,
		"Amount":       FormatAmount(amount),
		"RefId":        refID,
	}

	var out TokenResponse
	if err := c.post(ctx, "/api/Web/GetToken", body, &out); err != nil {
		return nil, err
	}
	if out.ResponseCode != CodeSuccess {
		return nil, fmt.Errorf("%w: GetToken returned code %d", ErrUpstream, out.ResponseCode)
	}

	return &out, nil
}

// Confirm acknowledges a settled transaction with the gateway. The gateway
// requires this second leg before funds are released to the merchant.
func (c *Client) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	if strings.TrimSpace(req.RefID) == "" || strings.TrimSpace(req.TransactionID) == "" {
		return nil, fmt.Errorf("validation error: ref_id and transaction_id must be non-empty")
	}
	req.MerchantCode = c.config.MerchantCode

	var out ConfirmResponse
	if err := c.post(ctx, "/api/Web/Confirm", req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("imepay client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("imepay config error: base_url is empty")
	}
	if strings.TrimSpace(c.config.MerchantCode) == "" {
		return fmt.Errorf("imepay config error: merchant_code is empty")
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode imepay request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.authHeader())
	httpReq.Header.Set("Module", c.moduleHeader())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", ErrUpstream, err)
	}

	return nil
}

func (c *Client) authHeader() string {
	creds := c.config.APIUser + ":" + c.config.APIPassword
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

func (c *Client) moduleHeader() string {
	return base64.StdEncoding.EncodeToString([]byte(c.config.Module))
}

// MerchantCode returns the configured merchant code
func (c *Client) MerchantCode() string {
	return c.config.MerchantCode
}

// BaseURL returns the configured gateway base URL
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.config.BaseURL, "/")
}

// FormatAmount renders an amount with the two decimal places the gateway expects
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
