package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/domain/interfaces"
	"github.com/uuakee/xotc/pkg/config"
)

type clyptClient struct {
	mu          sync.RWMutex
	baseURL     string
	publicKey   string
	secretKey   string
	withdrawKey string
	postbackURL string
	httpClient  *http.Client
	maxRetries  int
	retryDelay  time.Duration
	logger      zerolog.Logger
}

func NewClyptClient(cfg config.GatewayConfig, logger zerolog.Logger) interfaces.GatewayClient {
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}
	return &clyptClient{
		baseURL:     cfg.BaseURL,
		publicKey:   cfg.PublicKey,
		secretKey:   cfg.SecretKey,
		withdrawKey: cfg.WithdrawKey,
		postbackURL: cfg.PostbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// UpdateCredentials swaps the provider credentials at runtime. Empty fields
// keep their current value.
func (c *clyptClient) UpdateCredentials(baseURL, publicKey, secretKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if baseURL != "" {
		c.baseURL = baseURL
	}
	if publicKey != "" {
		c.publicKey = publicKey
	}
	if secretKey != "" {
		c.secretKey = secretKey
	}
	c.logger.Info().Msg("Gateway credentials reloaded")
}

func (c *clyptClient) authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	credentials := c.publicKey + ":" + c.secretKey
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

func (c *clyptClient) endpoint(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL + path
}

type chargeItem struct {
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Tangible  bool   `json:"tangible"`
}

type chargeDocument struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

type chargeCustomer struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Document chargeDocument `json:"document"`
}

type chargePayload struct {
	PaymentMethod string         `json:"paymentMethod"`
	Items         []chargeItem   `json:"items"`
	Amount        int64          `json:"amount"`
	Customer      chargeCustomer `json:"customer"`
	PostbackURL   string         `json:"postbackUrl"`
	Metadata      string         `json:"metadata"`
}

type chargeResult struct {
	ID  json.Number `json:"id"`
	Pix *struct {
		QRCode string `json:"qrcode"`
		Key    string `json:"key"`
	} `json:"pix"`
}

// CreateCharge requests a PIX payment instrument for a deposit. Amounts are
// already centavos, which is the provider's wire unit.
func (c *clyptClient) CreateCharge(ctx context.Context, req *domain.ChargeRequest) (*domain.ChargeResponse, error) {
	metadata, err := json.Marshal(domain.CallbackMetadata{
		UserID:        req.UserID,
		TransactionID: req.TransactionID,
		Purpose:       domain.PurposeDeposit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge metadata: %w", err)
	}

	payload := chargePayload{
		PaymentMethod: "pix",
		Items: []chargeItem{{
			Title:     "Depósito XOTC",
			UnitPrice: req.AmountCents,
			Quantity:  1,
			Tangible:  false,
		}},
		Amount: req.AmountCents,
		Customer: chargeCustomer{
			Name:  req.CustomerName,
			Email: "no-reply@xotc.com",
			Document: chargeDocument{
				Number: digitsOnly(req.CustomerCPF),
				Type:   "cpf",
			},
		},
		PostbackURL: c.postbackURL + "/api/v1/payments/callback",
		Metadata:    string(metadata),
	}

	var result chargeResult
	if err := c.makeRequest(ctx, "POST", "/transactions", nil, payload, &result); err != nil {
		return nil, domain.WrapError(domain.ErrGateway, "gateway charge request failed", err)
	}

	if result.Pix == nil {
		return nil, domain.NewError(domain.ErrGateway, "gateway returned no payment instrument")
	}

	return &domain.ChargeResponse{
		ExternalID: result.ID.String(),
		PixQRCode:  result.Pix.QRCode,
		PixKey:     result.Pix.Key,
	}, nil
}

type transferPayload struct {
	Method      string `json:"method"`
	Amount      int64  `json:"amount"`
	NetPayout   bool   `json:"netPayout"`
	PixKeyType  string `json:"pixKeyType"`
	PixKey      string `json:"pixKey"`
	PostbackURL string `json:"postbackUrl"`
	Metadata    string `json:"metadata"`
}

type transferResult struct {
	ID json.Number `json:"id"`
}

// CreateTransfer submits a payout instruction for an approved withdrawal.
func (c *clyptClient) CreateTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.TransferResponse, error) {
	metadata, err := json.Marshal(domain.CallbackMetadata{
		UserID:        req.UserID,
		TransactionID: req.TransactionID,
		Purpose:       domain.PurposeWithdrawal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer metadata: %w", err)
	}

	payload := transferPayload{
		Method:      "fiat",
		Amount:      req.AmountCents,
		NetPayout:   false,
		PixKeyType:  strings.ToLower(string(req.PixType)),
		PixKey:      req.PixKey,
		PostbackURL: c.postbackURL + "/api/v1/payments/withdraw/callback",
		Metadata:    string(metadata),
	}

	headers := map[string]string{}
	c.mu.RLock()
	if c.withdrawKey != "" {
		headers["x-withdraw-key"] = c.withdrawKey
	}
	c.mu.RUnlock()

	var result transferResult
	if err := c.makeRequest(ctx, "POST", "/transfers", headers, payload, &result); err != nil {
		return nil, domain.WrapError(domain.ErrGateway, "gateway transfer request failed", err)
	}

	return &domain.TransferResponse{ExternalID: result.ID.String()}, nil
}

// makeRequest posts JSON to the provider with bounded retries and exponential
// backoff. 4xx responses never retry; creation requests stay replay-safe
// because the correlation metadata pins them to one internal transaction.
func (c *clyptClient) makeRequest(ctx context.Context, method, path string, headers map[string]string, body interface{}, response interface{}) error {
	fullURL := c.endpoint(path)

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(1<<(attempt-1))):
			}
		}

		var reqBody []byte
		var err error
		if body != nil {
			reqBody, err = json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(reqBody))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.authorization())
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("url", fullURL).Msg("Clypt request failed, retrying")
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if response != nil {
				if err := json.Unmarshal(respBody, response); err != nil {
					return fmt.Errorf("failed to unmarshal response: %w", err)
				}
			}
			return nil
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
			c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Str("url", fullURL).Msg("Clypt server error, retrying")
			continue
		}

		return fmt.Errorf("client error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.logger.Error().Err(lastErr).Str("url", fullURL).Int("max_retries", c.maxRetries).Msg("Clypt request failed after all retries")
	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
