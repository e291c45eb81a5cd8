package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Order states.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderExpired   = "expired"
	OrderCancelled = "cancelled"
)

const gatewayOrderPrefix = "NSV-ORD-"

// Order is a buyer's purchase for one event. Item prices are snapshots taken
// at creation and never follow later tier edits.
type Order struct {
	ID            uint64      `json:"id"`
	EventID       uint64      `json:"eventId"`
	BuyerID       uint64      `json:"buyerId"`
	BuyerName     string      `json:"buyerName"`
	BuyerEmail    string      `json:"buyerEmail"`
	BuyerPhone    string      `json:"buyerPhone"`
	Items         []OrderItem `json:"items"`
	TotalAmount   int64       `json:"totalAmount"`
	Status        string      `json:"status"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	PaidAt        *time.Time  `json:"paidAt,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
	SnapToken     string      `json:"snapToken,omitempty"`
	PaymentURL    string      `json:"paymentUrl,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// OrderItem is one tier line inside an order.
type OrderItem struct {
	ID        uint64 `json:"id"`
	OrderID   uint64 `json:"orderId"`
	TierID    uint64 `json:"ticketTypeId"`
	TierName  string `json:"ticketTypeName"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

// TicketCount is the number of tickets the order mints once paid.
func (o Order) TicketCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// ItemsTotal recomputes the total from the item snapshots.
func (o Order) ItemsTotal() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.Subtotal
	}
	return sum
}

// Expired reports whether a pending order is past its deadline.
func (o Order) Expired(now time.Time) bool {
	return o.Status == OrderPending && !now.Before(o.ExpiresAt)
}

// GatewayOrderID is the identifier sent to the payment gateway.
func (o Order) GatewayOrderID() string {
	return fmt.Sprintf("%s%d", gatewayOrderPrefix, o.ID)
}

// ParseGatewayOrderID reverses GatewayOrderID.
func ParseGatewayOrderID(s string) (uint64, bool) {
	rest, ok := strings.CutPrefix(s, gatewayOrderPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
