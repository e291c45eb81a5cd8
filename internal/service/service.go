// Package service implements the marketplace rules: ordering, payment
// confirmation, the withdrawal ledger, moderation and notifications. Services
// own their SQL transactions and return *Error for failures callers can
// act on.
package service

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

var tracer = otel.Tracer("nesavent/service")

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uint64
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Publisher is the outbound message broker.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// withTx runs fn inside a transaction, committing when fn returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// notifyBestEffort logs instead of failing the caller; the state change it
// reports has already been committed.
func notifyBestEffort(ctx context.Context, n Notifier, logger *zap.Logger, note model.Notification) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, note); err != nil {
		logger.Warn("notification failed",
			zap.Uint64("user_id", note.UserID), zap.String("type", note.Type), zap.Error(err))
	}
}

func ptr[T any](v T) *T { return &v }
