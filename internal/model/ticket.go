package model

import "time"

// Ticket states.
const (
	TicketActive  = "aktif"
	TicketUsed    = "terpakai"
	TicketExpired = "expired"
)

// Ticket is one admission minted when its order is paid.
type Ticket struct {
	ID        uint64     `json:"id"`
	OrderID   uint64     `json:"orderId"`
	EventID   uint64     `json:"eventId"`
	TierID    uint64     `json:"ticketTypeId"`
	TierName  string     `json:"ticketTypeName"`
	OwnerID   uint64     `json:"ownerId"`
	OwnerName string     `json:"ownerName"`
	Code      string     `json:"code"`
	QRPayload string     `json:"qrCode"`
	Status    string     `json:"status"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
