package model

import "time"

// Notification types.
const (
	NotifyEventApproved       = "event_approved"
	NotifyEventRejected       = "event_rejected"
	NotifyWithdrawalCompleted = "withdrawal_completed"
	NotifyWithdrawalRejected  = "withdrawal_rejected"
	NotifyPaymentSuccess      = "payment_success"
	NotifyStudentApproved     = "student_approved"
	NotifyStudentRejected     = "student_rejected"
)

type Notification struct {
	ID           uint64     `json:"id"`
	UserID       uint64     `json:"recipientId"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	IsRead       bool       `json:"isRead"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
	EventID      *uint64    `json:"eventId,omitempty"`
	OrderID      *uint64    `json:"orderId,omitempty"`
	WithdrawalID *uint64    `json:"withdrawalId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
