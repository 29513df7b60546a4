package zaver

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// CallbackTokenHeader carries the shared secret on provider callbacks.
const CallbackTokenHeader = "Callback-Token"

const maxCallbackBody = 1 << 20

// ParsePaymentCallback authenticates and decodes a payment callback request.
// When callbackToken is non-empty the request's Callback-Token header must
// match it; the comparison is constant-time.
func ParsePaymentCallback(r *http.Request, callbackToken string) (*PaymentStatusResponse, error) {
	body, err := readCallbackBody(r, callbackToken)
	if err != nil {
		return nil, err
	}
	var status PaymentStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode payment callback: %w", err)
	}
	if status.PaymentID == "" {
		return nil, fmt.Errorf("payment callback missing paymentId")
	}
	return &status, nil
}

// ParseRefundCallback authenticates and decodes a refund callback request.
func ParseRefundCallback(r *http.Request, callbackToken string) (*RefundResponse, error) {
	body, err := readCallbackBody(r, callbackToken)
	if err != nil {
		return nil, err
	}
	var refund RefundResponse
	if err := json.Unmarshal(body, &refund); err != nil {
		return nil, fmt.Errorf("failed to decode refund callback: %w", err)
	}
	if refund.RefundID == "" {
		return nil, fmt.Errorf("refund callback missing refundId")
	}
	return &refund, nil
}

func readCallbackBody(r *http.Request, callbackToken string) ([]byte, error) {
	if callbackToken != "" {
		header := r.Header.Get(CallbackTokenHeader)
		if subtle.ConstantTimeCompare([]byte(header), []byte(callbackToken)) != 1 {
			return nil, ErrInvalidCallbackToken
		}
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read callback body: %w", err)
	}
	return body, nil
}
