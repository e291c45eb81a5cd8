package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

// DefaultOrderExpiry is how long a pending order waits for payment.
const DefaultOrderExpiry = 24 * time.Hour

// Selection is one requested tier and quantity.
type Selection struct {
	TierID   uint64
	Quantity int
}

// OrderService turns ticket selections into pending orders.
type OrderService struct {
	db      *sql.DB
	users   *repository.UserRepo
	events  *repository.EventRepo
	orders  *repository.OrderRepo
	gateway PaymentGateway
	logger  *zap.Logger
	expiry  time.Duration
	now     Clock
}

// NewOrderService wires the order processor. gateway may be nil, in which
// case orders are created without a payment session.
func NewOrderService(db *sql.DB, users *repository.UserRepo, events *repository.EventRepo, orders *repository.OrderRepo,
	gateway PaymentGateway, expiry time.Duration, logger *zap.Logger) *OrderService {
	if expiry <= 0 {
		expiry = DefaultOrderExpiry
	}
	return &OrderService{db: db, users: users, events: events, orders: orders, gateway: gateway,
		logger: logger, expiry: expiry, now: systemClock}
}

// CreateOrder validates selections against the event and snapshots prices.
// Stock is not touched until payment is confirmed.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID, eventID uint64, selections []Selection) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("event.id", int64(eventID)))

	ev, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	buyer, err := s.users.GetByID(ctx, buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("buyer not found")
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	items, total, err := BuildOrderItems(*ev, buyer, selections, now)
	if err != nil {
		return nil, err
	}
	order := &model.Order{
		EventID:     ev.ID,
		BuyerID:     buyer.ID,
		BuyerName:   buyer.Name,
		BuyerEmail:  buyer.Email,
		BuyerPhone:  buyer.Phone,
		Items:       items,
		TotalAmount: total,
		Status:      model.OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.expiry),
	}
	if err := withTx(ctx, s.db, func(tx *sql.Tx) error { return s.orders.CreateTx(ctx, tx, order) }); err != nil {
		return nil, err
	}
	ordersCreatedTotal.Inc()
	s.logger.Info("order created",
		zap.Uint64("order_id", order.ID), zap.Uint64("event_id", ev.ID),
		zap.Uint64("buyer_id", buyer.ID), zap.Int64("total", total))

	if s.gateway != nil {
		token, url, err := s.gateway.CreateTransaction(ctx, order, ev.Name)
		if err != nil {
			// the order stays payable through direct confirmation
			s.logger.Warn("payment session failed", zap.Uint64("order_id", order.ID), zap.Error(err))
		} else if err := s.orders.SetPaymentSession(ctx, order.ID, token, url); err != nil {
			s.logger.Warn("store payment session failed", zap.Uint64("order_id", order.ID), zap.Error(err))
		} else {
			order.SnapToken, order.PaymentURL = token, url
		}
	}
	return order, nil
}

// BuildOrderItems checks every selection against the event rules and
// returns the priced item snapshots and their total. Duplicate tier ids are
// merged before checking caps and stock.
func BuildOrderItems(ev model.Event, buyer model.User, selections []Selection, now time.Time) ([]model.OrderItem, int64, error) {
	if ev.Status != model.EventActive {
		return nil, 0, validationf("event is not open for sales")
	}
	if len(selections) == 0 {
		return nil, 0, validationf("select at least one ticket")
	}

	var (
		order  []uint64
		merged = map[uint64]int{}
		roles  = buyer.EligibilityRoles()
	)
	for _, sel := range selections {
		if sel.Quantity < 1 {
			return nil, 0, validationf("quantity must be at least 1")
		}
		tier, ok := ev.Tier(sel.TierID)
		if !ok {
			return nil, 0, validationf("ticket type %d does not belong to this event", sel.TierID)
		}
		have, seen := merged[sel.TierID]
		if !seen {
			if !tier.OnSale(now) {
				return nil, 0, validationf("ticket %q is not on sale", tier.Name)
			}
			if !tier.AllowsAny(roles) {
				return nil, 0, validationf("ticket %q is not available for your account", tier.Name)
			}
			order = append(order, sel.TierID)
		}
		// merged stays within the cap and the remaining stock
		if tier.MaxPerPerson != nil && sel.Quantity > *tier.MaxPerPerson-have {
			return nil, 0, validationf("maximum %d tickets per person for %q", *tier.MaxPerPerson, tier.Name)
		}
		if sel.Quantity > tier.RemainingStock-have {
			return nil, 0, validationf("only %d tickets left for %q", tier.RemainingStock, tier.Name)
		}
		merged[sel.TierID] = have + sel.Quantity
	}

	items := make([]model.OrderItem, 0, len(order))
	var total int64
	for _, tierID := range order {
		qty := merged[tierID]
		tier, _ := ev.Tier(tierID)
		subtotal := tier.Price * int64(qty)
		items = append(items, model.OrderItem{
			TierID:    tier.ID,
			TierName:  tier.Name,
			UnitPrice: tier.Price,
			Quantity:  qty,
			Subtotal:  subtotal,
		})
		total += subtotal
	}
	return items, total, nil
}

// GetOrder returns an order visible to the actor: its buyer, the event
// organizer or an admin.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uint64) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	if o.BuyerID == actor.ID || actor.IsAdmin() {
		return o, nil
	}
	if actor.Role == model.RoleMitra {
		ev, err := s.events.GetByID(ctx, o.EventID)
		if err != nil {
			return nil, err
		}
		if ev.OrganizerID == actor.ID {
			return o, nil
		}
	}
	return nil, forbidden("order belongs to another account")
}

func (s *OrderService) ListMyOrders(ctx context.Context, buyerID uint64) ([]model.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

// CancelOrder lets a buyer abandon a pending order.
func (s *OrderService) CancelOrder(ctx context.Context, buyerID, id uint64) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, forbidden("order belongs to another account")
	}
	if o.Status != model.OrderPending {
		return nil, conflictf("only pending orders can be cancelled, current status is %s", o.Status)
	}
	err = s.orders.Transition(ctx, s.db, o.ID, model.OrderPending, model.OrderCancelled)
	if errors.Is(err, repository.ErrConflict) {
		return nil, conflictf("order is no longer pending")
	}
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderCancelled
	return o, nil
}
