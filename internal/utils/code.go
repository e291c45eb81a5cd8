package utils

import (
	"strings"

	"github.com/google/uuid"
)

const ticketCodePrefix = "NSV-"

// NewTicketCode returns a code of the form NSV-XXXXXXXXXX (10 upper-case hex
// characters taken from a random UUID).
func NewTicketCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ticketCodePrefix + strings.ToUpper(hex[:10])
}

// NewTransactionID is used when a payment is confirmed without a gateway
// transaction reference.
func NewTransactionID() string {
	return "TRX-" + strings.ToUpper(uuid.NewString())
}
