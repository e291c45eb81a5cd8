package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/utils"
)

const userCols = `id, name, email, phone, password_hash, role, is_active,
	student_status, nim, university, student_card_url, student_rejection_reason,
	created_at, updated_at`

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, phone, password, role string, cost int) (uint64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, role) VALUES (?,?,?,?,?)",
		strings.TrimSpace(name), email, strings.TrimSpace(phone), hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email = ? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id = ? LIMIT 1", id))
}

// LockTx takes a row lock on the user. The ledger uses it to serialise
// withdrawal requests of one mitra.
func (r *UserRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	return tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", id).Scan(&got)
}

// List returns users, optionally filtered by role, newest first.
func (r *UserRepo) List(ctx context.Context, role string, limit, offset int) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users"
	var args []any
	if role != "" {
		q += " WHERE role = ?"
		args = append(args, role)
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.query(ctx, q, args...)
}

// ListByStudentStatus returns users in the given verification state,
// oldest submission first.
func (r *UserRepo) ListByStudentStatus(ctx context.Context, status string) ([]model.User, error) {
	return r.query(ctx, "SELECT "+userCols+" FROM users WHERE student_status = ? ORDER BY updated_at ASC", status)
}

func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, id)
	return noRowsIfUnaffected(res, err)
}

func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE id = ?", active, id)
	return noRowsIfUnaffected(res, err)
}

// SubmitStudent moves an unverified or rejected account to pending with the
// supplied academic data.
func (r *UserRepo) SubmitStudent(ctx context.Context, id uint64, s model.Student) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET student_status = ?, nim = ?, university = ?, student_card_url = ?, student_rejection_reason = NULL
		 WHERE id = ? AND student_status IN (?, ?)`,
		model.StudentPending, s.NIM, s.University, s.CardURL,
		id, model.StudentUnverified, model.StudentRejected)
	return requireAffected(res, err)
}

// DecideStudent resolves a pending verification. reason is stored only for
// rejections.
func (r *UserRepo) DecideStudent(ctx context.Context, id uint64, status, reason string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET student_status = ?, student_rejection_reason = ? WHERE id = ? AND student_status = ?",
		status, nullable(reason), id, model.StudentPending)
	return requireAffected(res, err)
}

func (r *UserRepo) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                       model.User
		nim, univ, card, reason sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.Student.Status, &nim, &univ, &card, &reason, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Student.NIM = nim.String
	u.Student.University = univ.String
	u.Student.CardURL = card.String
	u.Student.RejectionReason = reason.String
	return u, nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func noRowsIfUnaffected(res sql.Result, err error) error {
	err = requireAffected(res, err)
	if errors.Is(err, ErrConflict) {
		return sql.ErrNoRows
	}
	return err
}
