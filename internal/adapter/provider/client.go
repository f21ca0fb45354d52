package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"donation-ledger/config"
	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the external payment provider's REST API. It implements
// ports.PaymentProvider.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a payment provider client.
func NewClient(cfg config.ProviderConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		log:        log,
	}
}

type initializePayload struct {
	TxRef       string            `json:"tx_ref"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    initializeCust    `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type initializeCust struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		TxRef    string `json:"tx_ref"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// InitializeTransaction opens a hosted checkout session for a donation.
func (c *Client) InitializeTransaction(ctx context.Context, req ports.InitializeRequest) (*ports.CheckoutSession, error) {
	payload := initializePayload{
		TxRef:       req.TxRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: req.ReturnURL,
		Customer: initializeCust{
			Name:  req.DonorName,
			Email: req.DonorEmail,
		},
	}

	var out initializeResponse
	if err := c.do(ctx, http.MethodPost, "/payments", payload, &out); err != nil {
		return nil, err
	}

	if out.Status != "success" || out.Data.Link == "" {
		c.log.Warn().
			Str("tx_ref", req.TxRef).
			Str("provider_status", out.Status).
			Msg("provider: initialize rejected")
		return nil, apperror.ErrPaymentProvider(fmt.Errorf("initialize: provider status %q", out.Status))
	}

	return &ports.CheckoutSession{CheckoutURL: out.Data.Link}, nil
}

// VerifyTransaction polls the provider for the current state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, txRef string) (*ports.VerifyResult, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)

	var out verifyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	result := &ports.VerifyResult{
		Amount:   out.Data.Amount,
		Currency: out.Data.Currency,
	}
	switch strings.ToLower(out.Data.Status) {
	case "successful":
		result.Final = true
		result.Succeeded = true
	case "failed", "cancelled":
		result.Final = true
	default:
		// pending or unknown — not final yet
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("marshal provider payload: %w", err))
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperror.ErrPaymentProvider(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("provider: request failed")
		return apperror.ErrPaymentProvider(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("provider: non-2xx response")
		return apperror.ErrPaymentProvider(fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.ErrPaymentProvider(fmt.Errorf("decode provider response: %w", err))
	}
	return nil
}
