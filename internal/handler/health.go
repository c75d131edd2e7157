package handler

import "net/http"

func (h *PaymentHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	database := "ok"
	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	respondWithJSON(w, status, map[string]string{"status": "ok", "database": database})
}

func (h *PaymentHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.metrics.Snapshot())
}
