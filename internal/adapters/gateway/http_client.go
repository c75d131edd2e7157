// Package gateway implements C3: the outbound call to the external
// payment processor, classifying its response as success, retryable
// failure, or non-retryable failure per the response table. Grounded on
// the teacher's adapters/bank/client.go HTTPBankClient / postJSON
// pattern, collapsed from four bank operations down to the engine's one
// charge operation.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/brightlane/paymentflow/internal/ports"
)

// HTTPGatewayClient posts a charge payload to a configured gateway URL
// and classifies the result. It never retries — ChargeResult.Retryable
// only advises the caller.
type HTTPGatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPGatewayClient(baseURL string, timeout time.Duration) *HTTPGatewayClient {
	return &HTTPGatewayClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// chargePayload is the wire shape POSTed to the gateway: {payment_id,
// user_id, amount, commission, type}.
type chargePayload struct {
	PaymentID  int64  `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	Amount     string `json:"amount"`
	Commission string `json:"commission"`
	Type       string `json:"type"`
}

type chargeResponse struct {
	ErrorCode string `json:"error_code"`
}

func (c *HTTPGatewayClient) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	body := chargePayload{
		PaymentID:  req.PaymentID,
		UserID:     req.UserID,
		Amount:     req.Amount.String(),
		Commission: req.Commission.String(),
		Type:       string(req.Type),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return ports.ChargeResult{}, fmt.Errorf("marshal charge payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return ports.ChargeResult{}, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeoutOrConnReset(err) {
			return ports.ChargeResult{Success: false, ErrorCode: "network_error", Retryable: true}, nil
		}
		return ports.ChargeResult{}, fmt.Errorf("charge request: %w", err)
	}
	defer resp.Body.Close()

	return classify(resp)
}

func classify(resp *http.Response) (ports.ChargeResult, error) {
	status := resp.StatusCode

	if status >= 200 && status < 300 {
		return ports.ChargeResult{Success: true}, nil
	}

	var errResp chargeResponse
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	code := errResp.ErrorCode
	if code == "" {
		code = fmt.Sprintf("http_%d", status)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return ports.ChargeResult{Success: false, ErrorCode: code, Retryable: true}, nil
	case status >= 500:
		return ports.ChargeResult{Success: false, ErrorCode: code, Retryable: true}, nil
	case status >= 400:
		return ports.ChargeResult{Success: false, ErrorCode: code, Retryable: false}, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return ports.ChargeResult{}, fmt.Errorf("gateway returned unexpected status %d: %s", status, string(body))
	}
}

func isTimeoutOrConnReset(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
