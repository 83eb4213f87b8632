package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusFailed     Status = "FAILED"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) String() string {
	return string(s)
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusFailed:     true,
	},
	StatusProcessing: {
		StatusCompleted: true,
	},
	StatusFailed:    {},
	StatusCompleted: {},
}

func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// OrderItem snapshots the product's name and unit price at submission time,
// so later catalog edits never change what an order was sold for.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

type Order struct {
	ID                uuid.UUID   `json:"id"`
	Status            Status      `json:"status"`
	Total             int64       `json:"total"`
	PaidAt            *time.Time  `json:"paid_at,omitempty"`
	ExternalPaymentID string      `json:"external_payment_id,omitempty"`
	Items             []OrderItem `json:"items"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
