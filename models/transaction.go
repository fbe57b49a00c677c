package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionEarning    = "earning"
	TransactionWithdrawal = "withdrawal"
)

const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

// Transaction is an append-only ledger entry. RefereeID is only set on
// commission earnings whose source referee is known.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Type        string          `json:"type" db:"type"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Status      string          `json:"status" db:"status"`
	RefereeID   string          `json:"referee_id,omitempty" db:"referee_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
