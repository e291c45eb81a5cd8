package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

const qrSize = 256

// TicketService serves minted tickets and gate check-in.
type TicketService struct {
	tickets *repository.TicketRepo
	events  *repository.EventRepo
	logger  *zap.Logger
	now     Clock
}

func NewTicketService(tickets *repository.TicketRepo, events *repository.EventRepo, logger *zap.Logger) *TicketService {
	return &TicketService{tickets: tickets, events: events, logger: logger, now: systemClock}
}

func (s *TicketService) ListMyTickets(ctx context.Context, ownerID uint64) ([]model.Ticket, error) {
	return s.tickets.ListByOwner(ctx, ownerID)
}

// GetTicket returns the ticket with code if actor owns it.
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, code string) (model.Ticket, error) {
	t, err := s.tickets.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, notFound("ticket not found")
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if t.OwnerID != actor.ID && !actor.IsAdmin() {
		return model.Ticket{}, forbidden("not your ticket")
	}
	return t, nil
}

// TicketQR renders the ticket's QR payload as a PNG.
func (s *TicketService) TicketQR(ctx context.Context, actor Actor, code string) ([]byte, error) {
	t, err := s.GetTicket(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	return RenderQR(t.QRPayload)
}

func RenderQR(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, qrSize)
}

// CheckInTicket marks an active ticket used. Only the event owner or an
// admin may scan tickets.
func (s *TicketService) CheckInTicket(ctx context.Context, actor Actor, code string) (model.Ticket, error) {
	t, err := s.tickets.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, notFound("ticket not found")
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if !actor.IsAdmin() {
		ev, err := s.events.GetByID(ctx, t.EventID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return model.Ticket{}, err
		}
		if ev == nil || ev.OrganizerID != actor.ID {
			return model.Ticket{}, forbidden("only the event organizer can check in tickets")
		}
	}
	if t.Status != model.TicketActive {
		return model.Ticket{}, validationf("ticket is %s", t.Status)
	}

	now := s.now()
	if err := s.tickets.MarkUsed(ctx, t.ID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Ticket{}, validationf("ticket already used")
		}
		return model.Ticket{}, err
	}
	t.Status = model.TicketUsed
	t.UsedAt = &now
	s.logger.Info("ticket checked in", zap.String("code", t.Code), zap.Uint64("by", actor.ID))
	return t, nil
}
