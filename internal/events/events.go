package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Topics published by the service.
const (
	TopicOrderPaid          = "orders.paid"
	TopicPaymentDiscrepancy = "payments.discrepancy"
)

// Event is a domain event addressed to a topic. Key selects the partition.
type Event struct {
	Topic   string
	Key     string
	Payload any
}

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// OrderPaid is emitted once an order has been settled.
type OrderPaid struct {
	OrderID  uuid.UUID       `json:"orderId"`
	UserID   uuid.UUID       `json:"userId"`
	TxRef    string          `json:"txRef"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	PaidAt   time.Time       `json:"paidAt"`
}

// NewOrderPaid builds the event for a settled order.
func NewOrderPaid(p OrderPaid) Event {
	return Event{Topic: TopicOrderPaid, Key: p.OrderID.String(), Payload: p}
}

// PaymentDiscrepancy is emitted when the gateway reports a paid amount that
// does not match the order total. The order stays pending for manual review.
type PaymentDiscrepancy struct {
	OrderID    uuid.UUID       `json:"orderId"`
	TxRef      string          `json:"txRef"`
	Expected   decimal.Decimal `json:"expected"`
	Paid       decimal.Decimal `json:"paid"`
	Currency   string          `json:"currency"`
	DetectedAt time.Time       `json:"detectedAt"`
}

// NewPaymentDiscrepancy builds the event for a mismatched payment.
func NewPaymentDiscrepancy(d PaymentDiscrepancy) Event {
	return Event{Topic: TopicPaymentDiscrepancy, Key: d.OrderID.String(), Payload: d}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
