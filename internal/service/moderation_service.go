package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

// ModerationService holds the admin side of the marketplace: event review,
// student verification and account management.
type ModerationService struct {
	db       *sql.DB
	events   *repository.EventRepo
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
	notifier Notifier
	logger   *zap.Logger
	now      Clock

	// OnCatalogChange runs after an event becomes public or leaves review,
	// typically to drop cached listings.
	OnCatalogChange func(ctx context.Context)
}

func NewModerationService(db *sql.DB, events *repository.EventRepo, users *repository.UserRepo, tokens *repository.TokenRepo,
	notifier Notifier, logger *zap.Logger) *ModerationService {
	return &ModerationService{db: db, events: events, users: users, tokens: tokens,
		notifier: notifier, logger: logger, now: systemClock}
}

// ListEvents returns events for review, all of them when status is empty.
func (s *ModerationService) ListEvents(ctx context.Context, status string) ([]model.Event, error) {
	return s.events.List(ctx, repository.EventFilter{Status: status})
}

// ApproveEvent publishes a pending event.
func (s *ModerationService) ApproveEvent(ctx context.Context, adminID uint64, slug string) (*model.Event, error) {
	ev, err := s.decide(ctx, adminID, slug, model.EventActive, "")
	if err != nil {
		return nil, err
	}
	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:  ev.OrganizerID,
		Type:    model.NotifyEventApproved,
		Title:   "Event disetujui",
		Message: "Event " + ev.Name + " telah disetujui dan sudah tampil di katalog.",
		EventID: ptr(ev.ID),
	})
	return ev, nil
}

// RejectEvent sends a pending event back to its organizer with a reason.
func (s *ModerationService) RejectEvent(ctx context.Context, adminID uint64, slug, reason string) (*model.Event, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationf("rejection reason is required")
	}
	ev, err := s.decide(ctx, adminID, slug, model.EventRejected, reason)
	if err != nil {
		return nil, err
	}
	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:  ev.OrganizerID,
		Type:    model.NotifyEventRejected,
		Title:   "Event ditolak",
		Message: "Event " + ev.Name + " ditolak: " + reason,
		EventID: ptr(ev.ID),
	})
	return ev, nil
}

func (s *ModerationService) decide(ctx context.Context, adminID uint64, slug, status, reason string) (*model.Event, error) {
	ctx, span := tracer.Start(ctx, "ModerationService.decide")
	defer span.End()

	now := s.now()
	var ev *model.Event
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		ev, err = s.events.GetForUpdateTx(ctx, tx, slug)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("event not found")
		}
		if err != nil {
			return err
		}
		if ev.Status != model.EventPending {
			return validationf("only pending events can be reviewed, current status is %s", ev.Status)
		}
		if err := s.events.Decide(ctx, tx, ev.ID, status, reason, adminID, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return validationf("event is no longer pending")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev.Status = status
	ev.AlasanDitolak = reason
	ev.VerifiedBy = &adminID
	ev.VerifiedAt = &now
	s.logger.Info("event reviewed", zap.String("slug", ev.Slug), zap.String("status", status), zap.Uint64("admin_id", adminID))
	if s.OnCatalogChange != nil {
		s.OnCatalogChange(ctx)
	}
	return ev, nil
}

// StudentInput is the academic data a user submits for verification.
type StudentInput struct {
	NIM        string
	University string
	CardURL    string
}

// SubmitStudent requests student verification. Approved accounts are locked.
func (s *ModerationService) SubmitStudent(ctx context.Context, userID uint64, in StudentInput) (model.User, error) {
	st := model.Student{
		NIM:        strings.TrimSpace(in.NIM),
		University: strings.TrimSpace(in.University),
		CardURL:    strings.TrimSpace(in.CardURL),
	}
	if st.NIM == "" || st.University == "" || st.CardURL == "" {
		return model.User{}, validationf("nim, university and studentCardUrl are required")
	}
	if u, err := url.Parse(st.CardURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.User{}, validationf("studentCardUrl must be an http(s) URL")
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	switch u.Student.Status {
	case model.StudentApproved:
		return model.User{}, validationf("student status is already approved")
	case model.StudentPending:
		return model.User{}, validationf("verification is already pending review")
	}
	if err := s.users.SubmitStudent(ctx, userID, st); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, validationf("verification can no longer be submitted")
		}
		return model.User{}, err
	}
	st.Status = model.StudentPending
	u.Student = st
	return u, nil
}

func (s *ModerationService) ListPendingStudents(ctx context.Context) ([]model.User, error) {
	return s.users.ListByStudentStatus(ctx, model.StudentPending)
}

func (s *ModerationService) ApproveStudent(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.decideStudent(ctx, userID, model.StudentApproved, "")
	if err != nil {
		return model.User{}, err
	}
	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:  u.ID,
		Type:    model.NotifyStudentApproved,
		Title:   "Verifikasi mahasiswa disetujui",
		Message: "Akun kamu kini dapat membeli tiket khusus mahasiswa.",
	})
	return u, nil
}

func (s *ModerationService) RejectStudent(ctx context.Context, userID uint64, reason string) (model.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.User{}, validationf("rejection reason is required")
	}
	u, err := s.decideStudent(ctx, userID, model.StudentRejected, reason)
	if err != nil {
		return model.User{}, err
	}
	notifyBestEffort(ctx, s.notifier, s.logger, model.Notification{
		UserID:  u.ID,
		Type:    model.NotifyStudentRejected,
		Title:   "Verifikasi mahasiswa ditolak",
		Message: "Verifikasi ditolak: " + reason,
	})
	return u, nil
}

func (s *ModerationService) decideStudent(ctx context.Context, userID uint64, status, reason string) (model.User, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if u.Student.Status != model.StudentPending {
		return model.User{}, validationf("student verification is %s", u.Student.Status)
	}
	if err := s.users.DecideStudent(ctx, userID, status, reason); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, validationf("verification is no longer pending")
		}
		return model.User{}, err
	}
	u.Student.Status = status
	u.Student.RejectionReason = reason
	return u, nil
}

// ListUsers pages through accounts, optionally by role.
func (s *ModerationService) ListUsers(ctx context.Context, role string, limit, offset int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, role, limit, offset)
}

var accountRoles = []string{model.RoleUser, model.RoleMitra, model.RoleAdmin}

func (s *ModerationService) SetRole(ctx context.Context, actor Actor, userID uint64, role string) (model.User, error) {
	if !slices.Contains(accountRoles, role) {
		return model.User{}, validationf("unknown role %q", role)
	}
	if userID == actor.ID {
		return model.User{}, validationf("admins cannot change their own role")
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, notFound("user not found")
		}
		return model.User{}, err
	}
	return s.user(ctx, userID)
}

// SetActive enables or disables an account. Disabling revokes every refresh
// token so the account is signed out once its access token lapses.
func (s *ModerationService) SetActive(ctx context.Context, actor Actor, userID uint64, active bool) (model.User, error) {
	if userID == actor.ID && !active {
		return model.User{}, validationf("admins cannot deactivate themselves")
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, notFound("user not found")
		}
		return model.User{}, err
	}
	if !active {
		if err := s.tokens.RevokeAllForUser(ctx, userID, s.now()); err != nil {
			return model.User{}, err
		}
	}
	return s.user(ctx, userID)
}

func (s *ModerationService) user(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, notFound("user not found")
	}
	return u, err
}
