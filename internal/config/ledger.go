package config

import (
	"os"

	"github.com/shopspring/decimal"
)

const (
	DefaultWithdrawalMinAmount  int64 = 10000
	DefaultWithdrawalFeePercent       = "2.5"
)

// LedgerConfig holds payout rules for the withdrawal ledger.
type LedgerConfig struct {
	MinAmount  int64
	FeePercent decimal.Decimal
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MinAmount:  DefaultWithdrawalMinAmount,
		FeePercent: decimal.RequireFromString(DefaultWithdrawalFeePercent),
	}
}

func LoadLedgerConfig() LedgerConfig {
	lc := DefaultLedgerConfig()
	if n := envInt("WITHDRAWAL_MIN_AMOUNT", 0); n > 0 {
		lc.MinAmount = int64(n)
	}
	if v := os.Getenv("WITHDRAWAL_FEE_PERCENT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			lc.FeePercent = d
		}
	}
	return lc
}
