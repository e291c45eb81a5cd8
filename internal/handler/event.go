package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
	"github.com/dihanio/NesaVent-sub001/internal/service"
)

// Catalog is the event operations the handlers need.
type Catalog interface {
	CreateEvent(ctx context.Context, actor service.Actor, in service.EventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, actor service.Actor, slug string, in service.EventInput) (*model.Event, error)
	SubmitEvent(ctx context.Context, actor service.Actor, slug string) (*model.Event, service.DummyVerdict, error)
	GetEvent(ctx context.Context, viewer *service.Actor, slug string) (*model.Event, error)
	ListPublic(ctx context.Context, f repository.EventFilter) ([]model.Event, error)
	ListMine(ctx context.Context, actor service.Actor) ([]model.Event, error)
}

type EventHandler struct {
	Catalog Catalog
}

func NewEventHandler(catalog Catalog) *EventHandler { return &EventHandler{Catalog: catalog} }

type tierReq struct {
	Name         string     `json:"name" validate:"required,max=100"`
	Price        int64      `json:"price" validate:"gte=0"`
	Stock        int        `json:"stock" validate:"gte=1"`
	MaxPerPerson *int       `json:"maxPerPerson" validate:"omitempty,gte=1"`
	SaleStart    *time.Time `json:"saleStart"`
	SaleEnd      *time.Time `json:"saleEnd"`
	AllowedRoles []string   `json:"allowedRoles" validate:"dive,oneof=user mitra mahasiswa"`
}

type eventReq struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description"`
	Date        string    `json:"date" validate:"required"`
	Time        string    `json:"time" validate:"max=20"`
	Location    string    `json:"location" validate:"required,max=255"`
	Category    string    `json:"category" validate:"max=60"`
	TicketTypes []tierReq `json:"ticketTypes" validate:"required,min=1,dive"`
}

func (r eventReq) input() (service.EventInput, bool) {
	date, ok := parseDate(r.Date)
	if !ok {
		return service.EventInput{}, false
	}
	in := service.EventInput{
		Name: r.Name, Description: r.Description, Date: date, Time: r.Time,
		Location: r.Location, Category: r.Category,
		Tiers: make([]service.TierInput, len(r.TicketTypes)),
	}
	for i, t := range r.TicketTypes {
		in.Tiers[i] = service.TierInput{
			Name: t.Name, Price: t.Price, Stock: t.Stock, MaxPerPerson: t.MaxPerPerson,
			SaleStart: t.SaleStart, SaleEnd: t.SaleEnd, AllowedRoles: t.AllowedRoles,
		}
	}
	return in, true
}

// parseDate accepts 2006-01-02 or RFC 3339.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, true
	}
	return time.Time{}, false
}

func (h *EventHandler) bindEvent(c echo.Context) (service.EventInput, bool, error) {
	var req eventReq
	if ok, err := bindValid(c, &req); !ok {
		return service.EventInput{}, false, err
	}
	in, ok := req.input()
	if !ok {
		return service.EventInput{}, false, message(c, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
	}
	return in, true, nil
}

// List handles GET /api/events.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Catalog.ListPublic(c.Request().Context(), repository.EventFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("q"),
		Limit:    queryInt(c, "limit", 20),
		Offset:   queryInt(c, "offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /api/events/:slug.
func (h *EventHandler) Get(c echo.Context) error {
	var viewer *service.Actor
	if a, ok := actor(c); ok {
		viewer = &a
	}
	ev, err := h.Catalog.GetEvent(c.Request().Context(), viewer, c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Create handles POST /api/events.
func (h *EventHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	in, ok, err := h.bindEvent(c)
	if !ok {
		return err
	}
	ev, err := h.Catalog.CreateEvent(c.Request().Context(), a, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update handles PUT /api/events/:slug.
func (h *EventHandler) Update(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	in, ok, err := h.bindEvent(c)
	if !ok {
		return err
	}
	ev, err := h.Catalog.UpdateEvent(c.Request().Context(), a, c.Param("slug"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Submit handles PUT /api/events/:slug/submit. The detector verdict is
// returned alongside the event.
func (h *EventHandler) Submit(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ev, verdict, err := h.Catalog.SubmitEvent(c.Request().Context(), a, c.Param("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "dummyCheck": verdict})
}

// Mine handles GET /api/mitra/events.
func (h *EventHandler) Mine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	events, err := h.Catalog.ListMine(c.Request().Context(), a)
	if err != nil {
		return respondError(c, err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, events)
}
