package model

import "time"

// Processing outcomes of a gateway callback.
const (
	PaymentEventReceived  = "received"
	PaymentEventProcessed = "processed"
	PaymentEventIgnored   = "ignored"
	PaymentEventFailed    = "failed"
)

// PaymentEvent is the raw log of one payment gateway notification.
type PaymentEvent struct {
	ID                uint64    // payment_events.id
	Provider          string    // payment_events.provider
	ExternalID        string    // payment_events.external_id (gateway order id)
	OrderID           *uint64   // payment_events.order_id
	TransactionStatus string    // payment_events.transaction_status
	Payload           string    // payment_events.payload
	Signature         string    // payment_events.signature
	Status            string    // payment_events.status
	Error             string    // payment_events.error
	CreatedAt         time.Time // payment_events.created_at
}
