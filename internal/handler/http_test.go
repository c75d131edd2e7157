package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/testsupport"
)

type mockIntake struct {
	depositFn  func(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error)
	withdrawFn func(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error)
}

func (m *mockIntake) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error) {
	return m.depositFn(ctx, userID, amount, key)
}

func (m *mockIntake) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error) {
	return m.withdrawFn(ctx, userID, amount, key)
}

func TestHandleDeposit_Success(t *testing.T) {
	mock := &mockIntake{
		depositFn: func(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error) {
			return &domain.Payment{ID: 1, UserID: userID, Amount: amount, Status: domain.PaymentNew}, nil
		},
	}
	h := NewPaymentHandler(mock, testsupport.NewMemStore(), metrics.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body, _ := json.Marshal(map[string]any{"user_id": 7, "amount": "50.00"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/deposit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("want success response, got %+v", resp)
	}
}

func TestHandleDeposit_InvalidAmount(t *testing.T) {
	mock := &mockIntake{
		depositFn: func(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error) {
			t.Fatal("deposit should not be called for an invalid amount")
			return nil, nil
		},
	}
	h := NewPaymentHandler(mock, testsupport.NewMemStore(), metrics.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body, _ := json.Marshal(map[string]any{"user_id": 7, "amount": "not-a-number"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/deposit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleWithdraw_InsufficientFunds(t *testing.T) {
	mock := &mockIntake{
		withdrawFn: func(ctx context.Context, userID int64, amount decimal.Decimal, key *string) (*domain.Payment, error) {
			return &domain.Payment{ID: 1, UserID: userID, Status: domain.PaymentFailed}, domain.NewInsufficientFundsError()
		},
	}
	h := NewPaymentHandler(mock, testsupport.NewMemStore(), metrics.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body, _ := json.Marshal(map[string]any{"user_id": 7, "amount": "999999.00"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/withdraw", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandleGetPayment_NotFound(t *testing.T) {
	store := testsupport.NewMemStore()
	h := NewPaymentHandler(&mockIntake{}, store, metrics.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/999", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewPaymentHandler(&mockIntake{}, testsupport.NewMemStore(), metrics.New())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
