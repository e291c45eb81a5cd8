package model

import "time"

// Withdrawal states. Pending and processing both reserve balance.
const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalRejected   = "rejected"
)

// Withdrawal is a mitra payout request against earned revenue.
type Withdrawal struct {
	ID            uint64     `json:"id"`
	MitraID       uint64     `json:"mitraId"`
	EventID       *uint64    `json:"eventId,omitempty"`
	Amount        int64      `json:"jumlah"`
	AdminFee      int64      `json:"biayaAdmin"`
	NetAmount     int64      `json:"jumlahBersih"`
	BankName      string     `json:"bankName"`
	AccountNumber string     `json:"accountNumber"`
	AccountName   string     `json:"accountName"`
	Note          string     `json:"keterangan,omitempty"`
	Status        string     `json:"status"`
	AlasanDitolak string     `json:"alasanDitolak,omitempty"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	ProcessedBy   *uint64    `json:"processedBy,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// RevenueOrder is a paid order counted toward a mitra's earnings.
type RevenueOrder struct {
	OrderID     uint64    `json:"orderId"`
	EventID     uint64    `json:"eventId"`
	EventName   string    `json:"eventName"`
	TotalAmount int64     `json:"totalAmount"`
	PaidAt      time.Time `json:"paidAt"`
}

// Balance is the computed ledger position of a mitra.
type Balance struct {
	TotalPendapatan int64          `json:"totalPendapatan"`
	TotalDitarik    int64          `json:"totalDitarik"`
	TotalPending    int64          `json:"totalPending"`
	SaldoTersedia   int64          `json:"saldoTersedia"`
	Orders          []RevenueOrder `json:"orders"`
}
