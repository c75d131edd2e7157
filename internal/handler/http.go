package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/ports"
	"github.com/shopspring/decimal"
)

// IntakeService is the subset of application.PaymentIntake the HTTP
// layer drives.
type IntakeService interface {
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey *string) (*domain.Payment, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey *string) (*domain.Payment, error)
}

// PaymentHandler is the C9 HTTP surface: deposit/withdraw intake,
// payment lookup, DLQ listing, and the health/metrics endpoints.
type PaymentHandler struct {
	intake   IntakeService
	store    ports.Store
	metrics  *metrics.Registry
	validate *validator.Validate
}

func NewPaymentHandler(intake IntakeService, store ports.Store, reg *metrics.Registry) *PaymentHandler {
	return &PaymentHandler{intake: intake, store: store, metrics: reg, validate: validator.New()}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/payments/deposit", h.HandleDeposit)
	mux.HandleFunc("POST /api/v1/payments/withdraw", h.HandleWithdraw)
	mux.HandleFunc("GET /api/v1/payments/{id}", h.HandleGetPayment)
	mux.HandleFunc("GET /api/v1/dlq", h.HandleListDLQ)
	mux.HandleFunc("GET /api/v1/health", h.HandleHealth)
	mux.HandleFunc("GET /api/v1/metrics", h.HandleMetrics)
}
