// Package queue carries domain events over RabbitMQ: payload types, a
// publisher used by the services and a reconnecting consumer that appends
// every delivery to a log file for downstream collaborators.
package queue

import "time"

// Queue names. Each is a durable queue on the default exchange.
const (
	NotificationCreatedQueue = "notification.created"
	TicketIssuedQueue        = "ticket.issued"
)

// NotificationCreatedEvent is published after a notification row is stored.
type NotificationCreatedEvent struct {
	NotificationID uint64    `json:"notification_id"`
	UserID         uint64    `json:"user_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// TicketIssuedEvent is published once per paid order.
type TicketIssuedEvent struct {
	OrderID     uint64    `json:"order_id"`
	EventID     uint64    `json:"event_id"`
	BuyerID     uint64    `json:"buyer_id"`
	BuyerEmail  string    `json:"buyer_email"`
	TicketCodes []string  `json:"ticket_codes"`
	TotalAmount int64     `json:"total_amount"`
	PaidAt      time.Time `json:"paid_at"`
}
