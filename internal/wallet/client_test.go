// AngelaMos | 2026
// client_test.go

package wallet

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampix/subscription-backend/internal/config"
	"github.com/streampix/subscription-backend/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.WalletConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wallets/user-1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.WriteHeader(http.StatusOK)
	})

	exists, err := client.Exists(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestExists_NotFoundIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	exists, err := client.Exists(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExists_ServerErrorIsTransactionError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Exists(context.Background(), "user-1")
	require.ErrorIs(t, err, core.ErrWalletTransaction)
}

func TestDebit(t *testing.T) {
	var received transactionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wallets/user-1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.Debit(
		context.Background(),
		"user-1",
		decimal.NewFromFloat(39.90),
		"Subscription to Premium plan",
		"sub-42",
	)

	require.NoError(t, err)
	assert.Equal(t, "DEBIT", received.Type)
	assert.True(t, received.Amount.Equal(decimal.NewFromFloat(39.90)))
	assert.Equal(t, "sub-42", received.ReferenceID)
}

func TestDebit_InsufficientBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient funds"}}`))
	})

	err := client.Debit(
		context.Background(),
		"user-1",
		decimal.NewFromFloat(59.90),
		"Renewal of Family plan",
		"sub-42",
	)

	require.ErrorIs(t, err, core.ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestDebit_WalletGone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.Debit(
		context.Background(),
		"user-1",
		decimal.NewFromFloat(19.90),
		"Subscription to Basic plan",
		"sub-42",
	)

	require.ErrorIs(t, err, core.ErrWalletNotFound)
}

func TestCredit(t *testing.T) {
	var received transactionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.Credit(
		context.Background(),
		"user-1",
		decimal.NewFromFloat(20.00),
		"Refund of difference: change from Family plan to Premium plan",
		"sub-42",
	)

	require.NoError(t, err)
	assert.Equal(t, "CREDIT", received.Type)
}

func TestTransact_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.Debit(
		context.Background(),
		"user-1",
		decimal.NewFromFloat(19.90),
		"Subscription to Basic plan",
		"sub-42",
	)

	require.ErrorIs(t, err, core.ErrWalletTransaction)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Ping(context.Background()))
}
