package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicketTierPurchasable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name string
		tier TicketTier
		want bool
	}{
		{"open window with stock", TicketTier{RemainingStock: 1}, true},
		{"sold out", TicketTier{RemainingStock: 0}, false},
		{"not started", TicketTier{RemainingStock: 5, SaleStart: &after}, false},
		{"ended", TicketTier{RemainingStock: 5, SaleEnd: &before}, false},
		{"inside window", TicketTier{RemainingStock: 5, SaleStart: &before, SaleEnd: &after}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.tier.Purchasable(now))
		})
	}
}

func TestTicketTierAllowsAny(t *testing.T) {
	open := TicketTier{}
	students := TicketTier{AllowedRoles: []string{RoleMahasiswa}}

	require.True(t, open.AllowsAny([]string{RoleUser}))
	require.False(t, students.AllowsAny([]string{RoleUser}))

	u := User{Role: RoleUser, Student: Student{Status: StudentApproved}}
	require.True(t, students.AllowsAny(u.EligibilityRoles()))

	u.Student.Status = StudentPending
	require.False(t, students.AllowsAny(u.EligibilityRoles()))
}

func TestOrderTotals(t *testing.T) {
	o := Order{Items: []OrderItem{
		{UnitPrice: 50000, Quantity: 3, Subtotal: 150000},
		{UnitPrice: 25000, Quantity: 2, Subtotal: 50000},
	}}
	require.Equal(t, 5, o.TicketCount())
	require.Equal(t, int64(200000), o.ItemsTotal())
}

func TestGatewayOrderIDRoundTrip(t *testing.T) {
	o := Order{ID: 42}
	id, ok := ParseGatewayOrderID(o.GatewayOrderID())
	require.True(t, ok)
	require.Equal(t, uint64(42), id)

	_, ok = ParseGatewayOrderID("ORDER-42")
	require.False(t, ok)
	_, ok = ParseGatewayOrderID("NSV-ORD-x")
	require.False(t, ok)
}

func TestOrderExpired(t *testing.T) {
	now := time.Now()
	o := Order{Status: OrderPending, ExpiresAt: now}
	require.True(t, o.Expired(now))
	o.ExpiresAt = now.Add(time.Minute)
	require.False(t, o.Expired(now))
	o.Status = OrderPaid
	o.ExpiresAt = now.Add(-time.Minute)
	require.False(t, o.Expired(now))
}

func TestEventEditable(t *testing.T) {
	require.True(t, Event{Status: EventDraft}.Editable())
	require.True(t, Event{Status: EventRejected}.Editable())
	require.False(t, Event{Status: EventActive}.Editable())
}
