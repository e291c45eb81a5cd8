package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

func TestBuildOrderItemsSnapshotsPrices(t *testing.T) {
	ev := activeEvent(
		model.TicketTier{ID: 1, Name: "Reguler", Price: 50000, TotalStock: 5, RemainingStock: 5},
		model.TicketTier{ID: 2, Name: "VIP", Price: 120000, TotalStock: 2, RemainingStock: 2},
	)
	buyer := model.User{ID: 5, Role: model.RoleUser}

	items, total, err := BuildOrderItems(ev, buyer, []Selection{{TierID: 1, Quantity: 2}, {TierID: 2, Quantity: 1}, {TierID: 1, Quantity: 1}}, fixedNow)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 3, items[0].Quantity)
	require.Equal(t, int64(150000), items[0].Subtotal)
	require.Equal(t, int64(270000), total)

	order := model.Order{Items: items, TotalAmount: total}
	require.Equal(t, order.ItemsTotal(), order.TotalAmount)

	// later price edits do not touch the snapshot
	ev.TicketTiers[0].Price = 75000
	require.Equal(t, int64(50000), items[0].UnitPrice)
}

func TestBuildOrderItemsStockScenario(t *testing.T) {
	tier := model.TicketTier{ID: 1, Name: "Reguler", Price: 50000, TotalStock: 5, RemainingStock: 5}
	buyer := model.User{ID: 5, Role: model.RoleUser}

	_, total, err := BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: 3}}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, int64(150000), total)

	tier.RemainingStock = 2
	_, _, err = BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: 3}}, fixedNow)
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestBuildOrderItemsRules(t *testing.T) {
	two := 2
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)
	buyer := model.User{ID: 5, Role: model.RoleUser}

	cases := []struct {
		name string
		ev   model.Event
		user model.User
		sel  []Selection
	}{
		{"event not active", model.Event{Status: model.EventPending}, buyer, []Selection{{TierID: 1, Quantity: 1}}},
		{"empty selection", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5}), buyer, nil},
		{"zero quantity", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5}), buyer, []Selection{{TierID: 1, Quantity: 0}}},
		{"foreign tier", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5}), buyer, []Selection{{TierID: 99, Quantity: 1}}},
		{"sale not started", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5, SaleStart: &future}), buyer, []Selection{{TierID: 1, Quantity: 1}}},
		{"sale ended", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5, SaleEnd: &past}), buyer, []Selection{{TierID: 1, Quantity: 1}}},
		{"per person cap after merge", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5, MaxPerPerson: &two}), buyer,
			[]Selection{{TierID: 1, Quantity: 2}, {TierID: 1, Quantity: 1}}},
		{"student only tier", activeEvent(model.TicketTier{ID: 1, RemainingStock: 5, AllowedRoles: []string{model.RoleMahasiswa}}), buyer,
			[]Selection{{TierID: 1, Quantity: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := BuildOrderItems(tc.ev, tc.user, tc.sel, fixedNow)
			require.Error(t, err)
			require.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestBuildOrderItemsApprovedStudent(t *testing.T) {
	ev := activeEvent(model.TicketTier{ID: 1, Name: "Mahasiswa", Price: 25000, TotalStock: 10, RemainingStock: 10,
		AllowedRoles: []string{model.RoleMahasiswa}})
	student := model.User{ID: 5, Role: model.RoleUser, Student: model.Student{Status: model.StudentApproved}}

	items, total, err := BuildOrderItems(ev, student, []Selection{{TierID: 1, Quantity: 2}}, fixedNow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(50000), total)
}

func TestBuildOrderItemsOverflowingMerge(t *testing.T) {
	tier := model.TicketTier{ID: 1, Name: "Reguler", Price: 50000, TotalStock: 5, RemainingStock: 5}
	buyer := model.User{ID: 5, Role: model.RoleUser}

	_, _, err := BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: math.MaxInt}, {TierID: 1, Quantity: math.MaxInt}}, fixedNow)
	require.Equal(t, KindValidation, KindOf(err))

	_, _, err = BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: 3}, {TierID: 1, Quantity: math.MaxInt}}, fixedNow)
	require.Equal(t, KindValidation, KindOf(err))

	// merged quantity beyond stock fails even when each part fits
	_, _, err = BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: 3}, {TierID: 1, Quantity: 3}}, fixedNow)
	require.Equal(t, KindValidation, KindOf(err))

	maxPer := 4
	tier.MaxPerPerson = &maxPer
	_, _, err = BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: 2}, {TierID: 1, Quantity: math.MaxInt}}, fixedNow)
	require.Equal(t, KindValidation, KindOf(err))

	items, total, err := BuildOrderItems(activeEvent(tier), buyer, []Selection{{TierID: 1, Quantity: 2}, {TierID: 1, Quantity: 2}}, fixedNow)
	require.NoError(t, err)
	require.Equal(t, 4, items[0].Quantity)
	require.Equal(t, int64(200000), total)
}
