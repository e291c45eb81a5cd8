package model

import "time"

// Account roles. RoleMahasiswa is not stored on users; it is granted to
// accounts whose student verification was approved and is only used for
// ticket tier eligibility.
const (
	RoleUser      = "user"
	RoleMitra     = "mitra"
	RoleAdmin     = "admin"
	RoleMahasiswa = "mahasiswa"
)

// Student verification states.
const (
	StudentUnverified = "unverified"
	StudentPending    = "pending"
	StudentApproved   = "approved"
	StudentRejected   = "rejected"
)

// User represents an account row in the `users` table.
type User struct {
	ID           uint64    `json:"id"`            // users.id
	Name         string    `json:"name"`          // users.name
	Email        string    `json:"email"`         // users.email
	Phone        string    `json:"phone"`         // users.phone
	PasswordHash string    `json:"-"`             // users.password_hash
	Role         string    `json:"role"`          // users.role
	IsActive     bool      `json:"isActive"`      // users.is_active
	Student      Student   `json:"studentVerification"`
	CreatedAt    time.Time `json:"createdAt"`     // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"`     // users.updated_at
}

// Student groups the academic verification columns of a user.
type Student struct {
	Status          string `json:"status"`                    // users.student_status
	NIM             string `json:"nim,omitempty"`             // users.nim
	University      string `json:"university,omitempty"`      // users.university
	CardURL         string `json:"studentCardUrl,omitempty"`  // users.student_card_url
	RejectionReason string `json:"rejectionReason,omitempty"` // users.student_rejection_reason
}

// EligibilityRoles returns the roles a user may satisfy when a ticket tier
// restricts buyers by role.
func (u User) EligibilityRoles() []string {
	roles := []string{u.Role}
	if u.Student.Status == StudentApproved {
		roles = append(roles, RoleMahasiswa)
	}
	return roles
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
