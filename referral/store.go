package referral

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
)

// IdentityStore reads profiles. GetProfile returns (nil, nil) when the
// profile does not exist yet.
type IdentityStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ListReferees(ctx context.Context, referrerID string) ([]models.Profile, error)
}

// CodeResolver maps a normalized referral code back to a user id. It must run
// with privileges clients do not have.
type CodeResolver interface {
	ResolveCode(ctx context.Context, code string) (userID string, found bool, err error)
}

// ReferralStore persists referral edges.
type ReferralStore interface {
	// LinkReferral inserts edge and sets the referee's referred_by in one
	// unit of work. It returns ErrAlreadyReferred when the referee already
	// has a referrer or an edge.
	LinkReferral(ctx context.Context, edge models.Referral) error
	ListReferralsByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error)
	UpdateTotalCommission(ctx context.Context, referrerID, refereeID string, total decimal.Decimal) error
	ListReferrerIDs(ctx context.Context) ([]string, error)
	// ListDanglingReferrals returns edges whose referee has no referred_by.
	ListDanglingReferrals(ctx context.Context) ([]models.Referral, error)
	// RepairReferredBy sets referred_by only if it is still empty.
	RepairReferredBy(ctx context.Context, refereeID, referrerID string) error
}

// TransactionQuery filters ledger reads. Empty fields match everything.
type TransactionQuery struct {
	UserID string
	Type   string
	// DescriptionContains matches a case-insensitive literal substring.
	DescriptionContains string
}

// LedgerStore persists monetary transactions.
type LedgerStore interface {
	QueryTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	// InsertWithdrawal records a pending withdrawal only if the user's
	// LedgerBalance covers it, checked and written in one unit of work.
	// It returns ErrInsufficientBalance otherwise.
	InsertWithdrawal(ctx context.Context, w *models.Transaction) error
	// UpdateTransactionDescription rewrites the description and records the
	// attributed referee.
	UpdateTransactionDescription(ctx context.Context, id, description, refereeID string) error
	// SettleWithdrawal moves a pending withdrawal to status and, when
	// commission is non-nil, inserts it, all in one unit of work. It returns
	// ErrWithdrawalNotPending if the withdrawal was already settled.
	SettleWithdrawal(ctx context.Context, withdrawalID, status string, commission *models.Transaction) error
}

// Store is everything the ledger needs from persistence.
type Store interface {
	IdentityStore
	CodeResolver
	ReferralStore
	LedgerStore
}
