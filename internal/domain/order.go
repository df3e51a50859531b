package domain

import "time"

// OrderEventType enumerates the store lifecycle events we react to.
type OrderEventType string

const (
	OrderCreated   OrderEventType = "created"
	OrderPaid      OrderEventType = "paid"
	OrderCancelled OrderEventType = "cancelled"
)

// OrderItem is a single line item of a store order.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
	// Membership is true for membership products; those drive renewal dates.
	Membership bool `json:"membership,omitempty"`
}

// Order is the subset of a store order needed to sync it to the CRM.
type Order struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customer_id,omitempty"`
	CustomerEmail string      `json:"customer_email"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Total         float64     `json:"total"`
	Currency      string      `json:"currency"`
	PaymentMethod string      `json:"payment_method"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Items         []OrderItem `json:"items"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
}

// IsPaid reports whether the store has recorded a payment for the order.
func (o Order) IsPaid() bool { return o.PaidAt != nil && !o.PaidAt.IsZero() }

// FullName joins first and last name.
func (o Order) FullName() string {
	switch {
	case o.FirstName == "":
		return o.LastName
	case o.LastName == "":
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// OrderEvent is a lifecycle notification from the store.
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	Order      Order          `json:"order"`
	OccurredAt time.Time      `json:"occurred_at"`
}
