// AngelaMos | 2026
// client.go
// HTTP client for the wallet service. Subscriptions never touch wallet
// balances directly; every charge and refund goes through this client.

package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streampix/subscription-backend/internal/config"
	"github.com/streampix/subscription-backend/internal/core"
)

const (
	transactionDebit  = "DEBIT"
	transactionCredit = "CREDIT"

	defaultTimeout = 10 * time.Second
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg config.WalletConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type transactionRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ReferenceID string          `json:"reference_id"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Exists reports whether the user has a wallet. A 404 from the wallet
// service is a definitive "no", not a transport failure.
func (c *Client) Exists(ctx context.Context, userID string) (bool, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/wallets/"+userID,
		nil,
	)
	if err != nil {
		return false, fmt.Errorf("wallet exists request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf(
			"wallet exists %s: %w: %v",
			userID,
			core.ErrWalletTransaction,
			err,
		)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf(
			"wallet exists %s: unexpected status %d: %w",
			userID,
			resp.StatusCode,
			core.ErrWalletTransaction,
		)
	}
}

// Debit charges the amount against the user's wallet. Returns
// core.ErrInsufficientBalance when the wallet rejects the charge for
// lack of funds and core.ErrWalletNotFound when the wallet is gone.
func (c *Client) Debit(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	description string,
	referenceID string,
) error {
	return c.transact(ctx, userID, transactionRequest{
		Type:        transactionDebit,
		Amount:      amount,
		Description: description,
		ReferenceID: referenceID,
	})
}

// Credit returns funds to the user's wallet.
func (c *Client) Credit(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	description string,
	referenceID string,
) error {
	return c.transact(ctx, userID, transactionRequest{
		Type:        transactionCredit,
		Amount:      amount,
		Description: description,
		ReferenceID: referenceID,
	})
}

func (c *Client) transact(
	ctx context.Context,
	userID string,
	txn transactionRequest,
) error {
	body, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal wallet transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/wallets/"+userID+"/transactions",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("wallet transaction request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"wallet %s %s: %w: %v",
			txn.Type,
			userID,
			core.ErrWalletTransaction,
			err,
		)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf(
			"wallet %s %s: %w",
			txn.Type,
			userID,
			core.ErrWalletNotFound,
		)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf(
			"wallet %s %s: %s: %w",
			txn.Type,
			userID,
			readErrorMessage(resp.Body),
			core.ErrInsufficientBalance,
		)
	default:
		c.logger.Warn("wallet transaction failed",
			"user_id", userID,
			"type", txn.Type,
			"status", resp.StatusCode,
		)
		return fmt.Errorf(
			"wallet %s %s: unexpected status %d: %w",
			txn.Type,
			userID,
			resp.StatusCode,
			core.ErrWalletTransaction,
		)
	}
}

// Ping satisfies the health checker. Uses the wallet service's own
// health endpoint rather than a real wallet lookup.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/healthz",
		nil,
	)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wallet health status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

func readErrorMessage(body io.Reader) string {
	var er errorResponse
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&er); err != nil {
		return "wallet rejected transaction"
	}
	if er.Error.Message == "" {
		return "wallet rejected transaction"
	}
	return er.Error.Message
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
