package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/queue"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
	"github.com/dihanio/NesaVent-sub001/internal/utils"
)

// PaymentService confirms payments, mints tickets and expires stale orders.
type PaymentService struct {
	db        *sql.DB
	orders    *repository.OrderRepo
	events    *repository.EventRepo
	tickets   *repository.TicketRepo
	payEvents *repository.PaymentEventRepo
	gateway   PaymentGateway
	notifier  Notifier
	publisher Publisher
	logger    *zap.Logger
	now       Clock
	newCode   func() string

	// OnCatalogChange runs after a confirmation lowers remaining stock.
	OnCatalogChange func(ctx context.Context)
}

func NewPaymentService(db *sql.DB, orders *repository.OrderRepo, events *repository.EventRepo, tickets *repository.TicketRepo,
	payEvents *repository.PaymentEventRepo, gateway PaymentGateway, notifier Notifier, publisher Publisher, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		db: db, orders: orders, events: events, tickets: tickets, payEvents: payEvents,
		gateway: gateway, notifier: notifier, publisher: publisher, logger: logger,
		now: systemClock, newCode: utils.NewTicketCode,
	}
}

// Confirmation is the result of a successful payment confirmation.
type Confirmation struct {
	Order   *model.Order   `json:"order"`
	Tickets []model.Ticket `json:"tickets"`
}

// ConfirmPayment marks a pending order paid. In one transaction it locks
// the order, decrements every tier with a conditional update and mints one
// ticket per unit. Any shortfall rolls the whole confirmation back.
func (s *PaymentService) ConfirmPayment(ctx context.Context, orderID uint64, transactionID string) (*Confirmation, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", int64(orderID)))

	if strings.TrimSpace(transactionID) == "" {
		transactionID = utils.NewTransactionID()
	}
	now := s.now()

	var (
		order   *model.Order
		tickets []model.Ticket
		expired bool
	)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		order, err = s.orders.GetForUpdateTx(ctx, tx, orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("order not found")
		}
		if err != nil {
			return err
		}
		switch order.Status {
		case model.OrderPending:
		case model.OrderPaid:
			return ErrAlreadyPaid
		default:
			return conflictf("order is %s and cannot be paid", order.Status)
		}

		if order.Expired(now) {
			// committed below so the order stays expired
			expired = true
			return s.orders.Transition(ctx, tx, order.ID, model.OrderPending, model.OrderExpired)
		}

		for _, it := range order.Items {
			if err := s.events.DecrementStockTx(ctx, tx, it.TierID, it.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					s.logger.Info("confirmation short of stock", zap.Uint64("order_id", order.ID), zap.Uint64("tier_id", it.TierID))
					return ErrInsufficientStock
				}
				return err
			}
		}
		tickets = MintTickets(*order, now, s.newCode)
		if err := s.tickets.CreateBulkTx(ctx, tx, tickets); err != nil {
			return err
		}
		return s.orders.MarkPaidTx(ctx, tx, order.ID, transactionID, now)
	})
	switch {
	case err != nil:
		paymentConfirmationsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	case expired:
		paymentConfirmationsTotal.WithLabelValues("expired").Inc()
		return nil, conflictf("order has expired")
	}

	order.Status = model.OrderPaid
	order.PaidAt = &now
	order.TransactionID = transactionID
	paymentConfirmationsTotal.WithLabelValues("paid").Inc()
	ticketsIssuedTotal.Add(float64(len(tickets)))
	s.logger.Info("payment confirmed",
		zap.Uint64("order_id", order.ID), zap.String("transaction_id", transactionID), zap.Int("tickets", len(tickets)))

	s.afterPaid(ctx, order, tickets)
	return &Confirmation{Order: order, Tickets: tickets}, nil
}

// PayOrder confirms payment on behalf of the buyer or an admin, the manual
// path used when no gateway callback is involved.
func (s *PaymentService) PayOrder(ctx context.Context, actor Actor, orderID uint64, transactionID string) (*Confirmation, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actor.ID && !actor.IsAdmin() {
		return nil, forbidden("only the buyer can pay this order")
	}
	return s.ConfirmPayment(ctx, orderID, transactionID)
}

func (s *PaymentService) afterPaid(ctx context.Context, order *model.Order, tickets []model.Ticket) {
	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:  order.BuyerID,
		Type:    model.NotifyPaymentSuccess,
		Title:   "Pembayaran berhasil",
		Message: "Pembayaran pesanan berhasil, tiket kamu sudah terbit.",
		EventID: ptr(order.EventID),
		OrderID: ptr(order.ID),
	})
	if s.OnCatalogChange != nil {
		s.OnCatalogChange(ctx)
	}
	if s.publisher == nil {
		return
	}
	codes := make([]string, len(tickets))
	for i, t := range tickets {
		codes[i] = t.Code
	}
	ev := queue.TicketIssuedEvent{
		OrderID: order.ID, EventID: order.EventID, BuyerID: order.BuyerID, BuyerEmail: order.BuyerEmail,
		TicketCodes: codes, TotalAmount: order.TotalAmount, PaidAt: *order.PaidAt,
	}
	if err := s.publisher.Publish(ctx, queue.TicketIssuedQueue, ev); err != nil {
		s.logger.Warn("publish ticket.issued failed", zap.Uint64("order_id", order.ID), zap.Error(err))
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyPaid):
		return "already_paid"
	case KindOf(err) == KindValidation:
		return "insufficient_stock"
	case KindOf(err) != 0:
		return "rejected"
	}
	return "error"
}

// MintTickets creates one active ticket per purchased unit.
func MintTickets(order model.Order, now time.Time, newCode func() string) []model.Ticket {
	tickets := make([]model.Ticket, 0, order.TicketCount())
	for _, it := range order.Items {
		for i := 0; i < it.Quantity; i++ {
			code := newCode()
			tickets = append(tickets, model.Ticket{
				OrderID:   order.ID,
				EventID:   order.EventID,
				TierID:    it.TierID,
				TierName:  it.TierName,
				OwnerID:   order.BuyerID,
				OwnerName: order.BuyerName,
				Code:      code,
				QRPayload: qrPayload(code, order),
				Status:    model.TicketActive,
				CreatedAt: now,
			})
		}
	}
	return tickets
}

func qrPayload(code string, order model.Order) string {
	b, _ := json.Marshal(struct {
		Code    string `json:"code"`
		OrderID uint64 `json:"orderId"`
		EventID uint64 `json:"eventId"`
	}{code, order.ID, order.EventID})
	return string(b)
}

// ExpireOverdueOrders expires every pending order past its deadline.
func (s *PaymentService) ExpireOverdueOrders(ctx context.Context) (int64, error) {
	n, err := s.orders.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired overdue orders", zap.Int64("count", n))
	}
	return n, nil
}

// GatewayNotification is the HTTP notification body sent by Midtrans.
type GatewayNotification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
	SettlementTime    string `json:"settlement_time"`
}

// HandleGatewayNotification authenticates and applies a gateway callback.
// Every authenticated callback is logged as a PaymentEvent. The returned
// string is the processing outcome stored on that event.
func (s *PaymentService) HandleGatewayNotification(ctx context.Context, n GatewayNotification, raw []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.HandleGatewayNotification")
	defer span.End()

	if s.gateway == nil {
		return "", forbidden("payment gateway is not configured")
	}
	if !s.gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		s.logger.Warn("gateway notification with invalid signature", zap.String("order_id", n.OrderID))
		return "", forbidden("invalid signature")
	}

	pe := &model.PaymentEvent{
		Provider:          s.gateway.Name(),
		ExternalID:        n.OrderID,
		TransactionStatus: n.TransactionStatus,
		Payload:           string(raw),
		Signature:         n.SignatureKey,
		Status:            model.PaymentEventReceived,
		CreatedAt:         s.now(),
	}
	orderID, ok := model.ParseGatewayOrderID(n.OrderID)
	if ok {
		pe.OrderID = &orderID
	}
	if err := s.payEvents.Create(ctx, pe); err != nil {
		return "", err
	}

	status, detail, err := s.applyNotification(ctx, n, orderID, ok)
	if err != nil {
		status, detail = model.PaymentEventFailed, err.Error()
	}
	if rerr := s.payEvents.Resolve(ctx, pe.ID, status, detail); rerr != nil {
		s.logger.Warn("resolve payment event failed", zap.Uint64("payment_event_id", pe.ID), zap.Error(rerr))
	}
	s.logger.Info("gateway notification",
		zap.String("order_id", n.OrderID), zap.String("transaction_status", n.TransactionStatus),
		zap.String("outcome", status), zap.String("detail", detail))
	return status, err
}

func (s *PaymentService) applyNotification(ctx context.Context, n GatewayNotification, orderID uint64, known bool) (status, detail string, err error) {
	if !known {
		return model.PaymentEventIgnored, "unknown order id", nil
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PaymentEventIgnored, "order not found", nil
	}
	if err != nil {
		return "", "", err
	}
	gross, err := decimal.NewFromString(n.GrossAmount)
	if err != nil || !gross.Equal(decimal.NewFromInt(order.TotalAmount)) {
		return "", "", validationf("gross amount %s does not match order total %d", n.GrossAmount, order.TotalAmount)
	}

	switch strings.ToLower(n.TransactionStatus) {
	case "capture":
		if fs := strings.ToLower(n.FraudStatus); fs != "" && fs != "accept" {
			return model.PaymentEventIgnored, "fraud status " + fs, nil
		}
		fallthrough
	case "settlement":
		_, err := s.ConfirmPayment(ctx, orderID, n.TransactionID)
		if errors.Is(err, ErrAlreadyPaid) {
			return model.PaymentEventIgnored, "order already paid", nil
		}
		if err != nil {
			return "", "", err
		}
		return model.PaymentEventProcessed, "", nil
	case "expire":
		return s.closeOrder(ctx, orderID, model.OrderExpired)
	case "cancel", "deny", "failure":
		return s.closeOrder(ctx, orderID, model.OrderCancelled)
	}
	return model.PaymentEventIgnored, "transaction status " + n.TransactionStatus, nil
}

func (s *PaymentService) closeOrder(ctx context.Context, orderID uint64, to string) (string, string, error) {
	err := s.orders.Transition(ctx, s.db, orderID, model.OrderPending, to)
	if errors.Is(err, repository.ErrConflict) {
		return model.PaymentEventIgnored, "order is not pending", nil
	}
	if err != nil {
		return "", "", err
	}
	return model.PaymentEventProcessed, "", nil
}

// RunExpirySweeper expires overdue orders every interval until ctx ends.
func (s *PaymentService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireOverdueOrders(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("order expiry sweep failed", zap.Error(err))
			}
		}
	}
}
