package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrGateway = errors.New("payment gateway request failed")

// PaymentRequest is the gateway-side handle for an order's payment. The
// reference id is our order id; the checkout URL is what the cashier opens
// to let the customer pay.
type PaymentRequest struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type createPaymentRequestBody struct {
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func (c *Client) CreatePaymentRequest(ctx context.Context, referenceID string, amount int64) (*PaymentRequest, error) {
	body, err := json.Marshal(createPaymentRequestBody{
		ReferenceID: referenceID,
		Amount:      amount,
		Currency:    "IDR",
	})
	if err != nil {
		return nil, fmt.Errorf("payment: failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment_requests", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("reference_id", referenceID).Msg("payment: gateway call failed")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("reference_id", referenceID).
			Str("body", string(respBody)).Msg("payment: gateway returned non-2xx")
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrGateway, resp.StatusCode)
	}

	var pr PaymentRequest
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode gateway response: %v", ErrGateway, err)
	}
	if pr.ID == "" {
		return nil, fmt.Errorf("%w: gateway response missing payment request id", ErrGateway)
	}

	return &pr, nil
}
