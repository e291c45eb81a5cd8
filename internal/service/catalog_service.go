package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
	"github.com/dihanio/NesaVent-sub001/internal/utils"
)

const maxTiersPerEvent = 20

var tierRoles = []string{model.RoleUser, model.RoleMitra, model.RoleMahasiswa}

// TierInput describes one ticket tier of an event draft.
type TierInput struct {
	Name         string
	Price        int64
	Stock        int
	MaxPerPerson *int
	SaleStart    *time.Time
	SaleEnd      *time.Time
	AllowedRoles []string
}

// EventInput is the editable part of an event.
type EventInput struct {
	Name        string
	Description string
	Date        time.Time
	Time        string
	Location    string
	Category    string
	Tiers       []TierInput
}

// CatalogService manages events from the organizer side and serves the
// public listing.
type CatalogService struct {
	db       *sql.DB
	events   *repository.EventRepo
	detector *DummyDetector
	notifier Notifier
	logger   *zap.Logger
	now      Clock
}

func NewCatalogService(db *sql.DB, events *repository.EventRepo, detector *DummyDetector, notifier Notifier, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, events: events, detector: detector, notifier: notifier, logger: logger, now: systemClock}
}

// CreateEvent stores a new draft owned by the caller.
func (s *CatalogService) CreateEvent(ctx context.Context, actor Actor, in EventInput) (*model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	slug, err := utils.UniqueSlug(ctx, utils.Slugify(in.Name), s.events.SlugExists)
	if err != nil {
		return nil, err
	}
	ev := applyEventInput(model.Event{Slug: slug, OrganizerID: actor.ID, Status: model.EventDraft}, in)
	err = withTx(ctx, s.db, func(tx *sql.Tx) error { return s.events.CreateTx(ctx, tx, &ev) })
	if errors.Is(err, repository.ErrSlugExists) {
		return nil, conflictf("slug %q is already taken, please retry", slug)
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateEvent rewrites an editable event of the caller. A rejected event
// goes back to draft so it can be resubmitted.
func (s *CatalogService) UpdateEvent(ctx context.Context, actor Actor, slug string, in EventInput) (*model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	var updated model.Event
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		ev, err := s.events.GetForUpdateTx(ctx, tx, slug)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("event not found")
		}
		if err != nil {
			return err
		}
		if ev.OrganizerID != actor.ID {
			return forbidden("event belongs to another organizer")
		}
		if !ev.Editable() {
			return conflictf("event with status %s can no longer be edited", ev.Status)
		}
		updated = applyEventInput(*ev, in)
		if ev.Status == model.EventRejected {
			updated.Status = model.EventDraft
		}
		return s.events.UpdateTx(ctx, tx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SubmitEvent sends a draft to review. Drafts the detector flags are
// rejected immediately with the detector reasons.
func (s *CatalogService) SubmitEvent(ctx context.Context, actor Actor, slug string) (*model.Event, DummyVerdict, error) {
	var (
		ev      *model.Event
		verdict DummyVerdict
	)
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		ev, err = s.events.GetForUpdateTx(ctx, tx, slug)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("event not found")
		}
		if err != nil {
			return err
		}
		if ev.OrganizerID != actor.ID {
			return forbidden("event belongs to another organizer")
		}
		if ev.Status != model.EventDraft {
			return conflictf("only draft events can be submitted, current status is %s", ev.Status)
		}
		verdict = s.detector.Evaluate(*ev)
		ev.DummyScore = verdict.Score
		ev.DummyReasons = verdict.Reasons
		ev.Status = model.EventPending
		ev.AlasanDitolak = ""
		if verdict.IsDummy {
			ev.Status = model.EventRejected
			ev.AlasanDitolak = "Terdeteksi konten dummy: " + strings.Join(verdict.Reasons, "; ")
		}
		return s.events.SubmitTx(ctx, tx, ev.ID, ev.Status, verdict.Score, verdict.Reasons, ev.AlasanDitolak)
	})
	if err != nil {
		return nil, DummyVerdict{}, err
	}
	if verdict.IsDummy {
		s.logger.Info("event auto-rejected", zap.String("slug", ev.Slug), zap.Int("score", verdict.Score))
		notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
			UserID:  ev.OrganizerID,
			Type:    model.NotifyEventRejected,
			Title:   "Event ditolak otomatis",
			Message: ev.AlasanDitolak,
			EventID: ptr(ev.ID),
		})
	}
	return ev, verdict, nil
}

// GetEvent returns an event by slug. Events that are not public are only
// visible to their organizer and admins.
func (s *CatalogService) GetEvent(ctx context.Context, viewer *Actor, slug string) (*model.Event, error) {
	ev, err := s.events.GetBySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	if isPublic(ev.Status) {
		return ev, nil
	}
	if viewer != nil && (viewer.IsAdmin() || viewer.ID == ev.OrganizerID) {
		return ev, nil
	}
	return nil, notFound("event not found")
}

// ListPublic lists active events.
func (s *CatalogService) ListPublic(ctx context.Context, f repository.EventFilter) ([]model.Event, error) {
	f.Status = model.EventActive
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.events.List(ctx, f)
}

// ListMine lists every event of the calling organizer.
func (s *CatalogService) ListMine(ctx context.Context, actor Actor) ([]model.Event, error) {
	return s.events.ListByOrganizer(ctx, actor.ID)
}

func isPublic(status string) bool {
	return status == model.EventActive || status == model.EventFinished
}

func applyEventInput(ev model.Event, in EventInput) model.Event {
	ev.Name = strings.TrimSpace(in.Name)
	ev.Description = strings.TrimSpace(in.Description)
	ev.Date = in.Date.UTC()
	ev.Time = strings.TrimSpace(in.Time)
	ev.Location = strings.TrimSpace(in.Location)
	ev.Category = strings.TrimSpace(in.Category)
	ev.TicketTiers = make([]model.TicketTier, len(in.Tiers))
	for i, t := range in.Tiers {
		ev.TicketTiers[i] = model.TicketTier{
			Position:       i,
			Name:           strings.TrimSpace(t.Name),
			Price:          t.Price,
			TotalStock:     t.Stock,
			RemainingStock: t.Stock,
			MaxPerPerson:   t.MaxPerPerson,
			SaleStart:      t.SaleStart,
			SaleEnd:        t.SaleEnd,
			AllowedRoles:   t.AllowedRoles,
		}
	}
	return ev
}

func validateEventInput(in EventInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationf("name is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return validationf("location is required")
	}
	if in.Date.IsZero() {
		return validationf("date is required")
	}
	if len(in.Tiers) == 0 {
		return validationf("at least one ticket type is required")
	}
	if len(in.Tiers) > maxTiersPerEvent {
		return validationf("an event may have at most %d ticket types", maxTiersPerEvent)
	}
	seen := make(map[string]bool, len(in.Tiers))
	for _, t := range in.Tiers {
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			return validationf("ticket type name is required")
		case seen[strings.ToLower(name)]:
			return validationf("duplicate ticket type %q", name)
		case t.Price < 0:
			return validationf("price of %q must not be negative", name)
		case t.Stock < 1:
			return validationf("stock of %q must be at least 1", name)
		case t.MaxPerPerson != nil && *t.MaxPerPerson < 1:
			return validationf("maxPerPerson of %q must be at least 1", name)
		case t.SaleStart != nil && t.SaleEnd != nil && !t.SaleEnd.After(*t.SaleStart):
			return validationf("sale end of %q must be after sale start", name)
		}
		for _, r := range t.AllowedRoles {
			if !slices.Contains(tierRoles, r) {
				return validationf("unknown role %q on %q", r, name)
			}
		}
		seen[strings.ToLower(name)] = true
	}
	return nil
}
