package repository

import (
	"context"
	"database/sql"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

// PaymentEventRepo keeps an audit trail of gateway callbacks.
type PaymentEventRepo struct{ db *sql.DB }

func NewPaymentEventRepo(db *sql.DB) *PaymentEventRepo { return &PaymentEventRepo{db: db} }

func (r *PaymentEventRepo) Create(ctx context.Context, pe *model.PaymentEvent) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_events (provider, external_id, order_id, transaction_status, payload, signature, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		pe.Provider, pe.ExternalID, nullablePtr(pe.OrderID), pe.TransactionStatus, pe.Payload, pe.Signature, pe.Status,
		pe.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	pe.ID = uint64(id)
	return nil
}

// Resolve records the processing outcome of a logged callback.
func (r *PaymentEventRepo) Resolve(ctx context.Context, id uint64, status, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE payment_events SET status = ?, error = ? WHERE id = ?", status, nullable(errMsg), id)
	return err
}
