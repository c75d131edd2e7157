package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
)

const maxIdempotencyKeyHeaderLen = 64

type intakeRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Amount string `json:"amount" validate:"required"`
}

type intakeOp func(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey *string) (*domain.Payment, error)

func (h *PaymentHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleIntake(w, r, h.intake.Deposit)
}

func (h *PaymentHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleIntake(w, r, h.intake.Withdraw)
}

func (h *PaymentHandler) handleIntake(w http.ResponseWriter, r *http.Request, op intakeOp) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req intakeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, domain.NewValidationError("malformed request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondWithError(w, domain.NewInvalidAmountError("amount is not a valid decimal"))
		return
	}

	var idemKey *string
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		if len(key) > maxIdempotencyKeyHeaderLen {
			respondWithError(w, domain.NewValidationError("Idempotency-Key header too long"))
			return
		}
		idemKey = &key
	}

	payment, err := op(r.Context(), req.UserID, amount, idemKey)
	if err != nil {
		// Insufficient funds still persists a failed payment row, but the
		// request itself is rejected; the client gets the error, not the
		// payment body.
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, payment)
}
