package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

type WebhookStatus string

const (
	WebhookStatusSucceeded WebhookStatus = "SUCCEEDED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

type WebhookData struct {
	ID               string        `json:"id"`
	Amount           int64         `json:"amount"`
	PaymentRequestID string        `json:"payment_request_id"`
	ReferenceID      string        `json:"reference_id"`
	Status           WebhookStatus `json:"status"`
}

type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// ParseWebhookEvent decodes a gateway notification strictly: unknown fields,
// missing identifiers, and status codes outside the known set are all
// rejected before any caller touches the payload.
func ParseWebhookEvent(r io.Reader) (*WebhookEvent, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var event WebhookEvent
	if err := decoder.Decode(&event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if event.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}
	if event.Data.ReferenceID == "" {
		return nil, fmt.Errorf("%w: missing reference id", ErrMalformedEvent)
	}
	switch event.Data.Status {
	case WebhookStatusSucceeded, WebhookStatusFailed:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrMalformedEvent, event.Data.Status)
	}

	return &event, nil
}
