package handler

import (
	"net/http"
	"strconv"

	"github.com/brightlane/paymentflow/internal/domain"
)

func (h *PaymentHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, domain.NewValidationError("payment id must be an integer"))
		return
	}

	payment, err := h.store.Payments().FindByID(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, payment)
}

const (
	defaultDLQLimit = 50
	maxDLQLimit     = 200
)

func (h *PaymentHandler) HandleListDLQ(w http.ResponseWriter, r *http.Request) {
	limit := defaultDLQLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondWithError(w, domain.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxDLQLimit {
		limit = maxDLQLimit
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondWithError(w, domain.NewValidationError("offset must be a non-negative integer"))
			return
		}
		offset = parsed
	}

	entries, err := h.store.DLQ().List(r.Context(), limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
