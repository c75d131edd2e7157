package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/ports"
)

func chargeReq() ports.ChargeRequest {
	return ports.ChargeRequest{
		PaymentID:  1,
		UserID:     2,
		Amount:     decimal.NewFromInt(100),
		Commission: decimal.NewFromInt(2),
		Type:       domain.PaymentDeposit,
	}
}

func TestHTTPGatewayClient_Charge(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       ports.ChargeResult
	}{
		{"success 200", http.StatusOK, `{}`, ports.ChargeResult{Success: true}},
		{"success 201", http.StatusCreated, `{}`, ports.ChargeResult{Success: true}},
		{"5xx retryable", http.StatusInternalServerError, `{"error_code":"gateway_down"}`, ports.ChargeResult{Success: false, ErrorCode: "gateway_down", Retryable: true}},
		{"429 retryable", http.StatusTooManyRequests, `{"error_code":"rate_limited"}`, ports.ChargeResult{Success: false, ErrorCode: "rate_limited", Retryable: true}},
		{"4xx non-retryable", http.StatusBadRequest, `{"error_code":"invalid_card"}`, ports.ChargeResult{Success: false, ErrorCode: "invalid_card", Retryable: false}},
		{"4xx no body code", http.StatusUnprocessableEntity, `{}`, ports.ChargeResult{Success: false, ErrorCode: "http_422", Retryable: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewHTTPGatewayClient(srv.URL, 2*time.Second)
			got, err := client.Charge(context.Background(), chargeReq())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHTTPGatewayClient_Charge_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPGatewayClient(srv.URL, 5*time.Millisecond)
	got, err := client.Charge(context.Background(), chargeReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Success || !got.Retryable {
		t.Fatalf("want retryable failure on timeout, got %+v", got)
	}
}

func TestMockGateway_AlwaysSucceeds(t *testing.T) {
	g := NewMockGateway(0)
	for i := 0; i < 10; i++ {
		res, err := g.Charge(context.Background(), chargeReq())
		if err != nil || !res.Success {
			t.Fatalf("want success, got %+v, err %v", res, err)
		}
	}
}

func TestMockGateway_AlwaysFails(t *testing.T) {
	g := NewMockGateway(1)
	res, err := g.Charge(context.Background(), chargeReq())
	if err != nil || res.Success || !res.Retryable {
		t.Fatalf("want retryable failure, got %+v, err %v", res, err)
	}
}
