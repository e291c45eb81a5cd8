package model

import (
	"slices"
	"time"
)

// Event lifecycle states.
const (
	EventDraft     = "draft"
	EventPending   = "pending"
	EventActive    = "aktif"
	EventFinished  = "selesai"
	EventCancelled = "dibatalkan"
	EventRejected  = "ditolak"
)

// Event is a listing owned by a mitra. Tiers are kept in display order.
type Event struct {
	ID            uint64       `json:"id"`
	Slug          string       `json:"slug"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Date          time.Time    `json:"date"`
	Time          string       `json:"time"`
	Location      string       `json:"location"`
	Category      string       `json:"category"`
	OrganizerID   uint64       `json:"organizerId"`
	Status        string       `json:"status"`
	AlasanDitolak string       `json:"alasanDitolak,omitempty"`
	VerifiedBy    *uint64      `json:"verifiedBy,omitempty"`
	VerifiedAt    *time.Time   `json:"verifiedAt,omitempty"`
	DummyScore    int          `json:"dummyScore"`
	DummyReasons  []string     `json:"dummyReasons,omitempty"`
	TicketTiers   []TicketTier `json:"ticketTypes"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Editable reports whether the organizer may still change the event.
func (e Event) Editable() bool {
	switch e.Status {
	case EventDraft, EventPending, EventRejected:
		return true
	}
	return false
}

// Tier returns the tier with the given id.
func (e Event) Tier(id uint64) (TicketTier, bool) {
	for _, t := range e.TicketTiers {
		if t.ID == id {
			return t, true
		}
	}
	return TicketTier{}, false
}

// TicketTier is one priced category of tickets inside an event.
// Invariant: 0 <= RemainingStock <= TotalStock.
type TicketTier struct {
	ID             uint64     `json:"id"`              // ticket_tiers.id
	EventID        uint64     `json:"eventId"`         // ticket_tiers.event_id
	Position       int        `json:"-"`               // ticket_tiers.position
	Name           string     `json:"name"`            // ticket_tiers.name
	Price          int64      `json:"price"`           // ticket_tiers.price
	TotalStock     int        `json:"stock"`           // ticket_tiers.total_stock
	RemainingStock int        `json:"remainingStock"`  // ticket_tiers.remaining_stock
	MaxPerPerson   *int       `json:"maxPerPerson,omitempty"`
	SaleStart      *time.Time `json:"saleStart,omitempty"`
	SaleEnd        *time.Time `json:"saleEnd,omitempty"`
	AllowedRoles   []string   `json:"allowedRoles,omitempty"`
}

// OnSale reports whether now falls inside the optional sale window.
func (t TicketTier) OnSale(now time.Time) bool {
	if t.SaleStart != nil && now.Before(*t.SaleStart) {
		return false
	}
	if t.SaleEnd != nil && now.After(*t.SaleEnd) {
		return false
	}
	return true
}

// Purchasable is OnSale with stock left.
func (t TicketTier) Purchasable(now time.Time) bool {
	return t.OnSale(now) && t.RemainingStock > 0
}

// AllowsAny reports whether one of roles is eligible for the tier. A tier
// without a role restriction is open to everybody.
func (t TicketTier) AllowsAny(roles []string) bool {
	if len(t.AllowedRoles) == 0 {
		return true
	}
	for _, r := range roles {
		if slices.Contains(t.AllowedRoles, r) {
			return true
		}
	}
	return false
}
