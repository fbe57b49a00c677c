package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

// Store is the Postgres implementation of referral.Store plus the profile
// queries used by sign-up and login.
type Store struct {
	pool *pgxpool.Pool
}

var _ referral.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const profileColumns = `id::text, email, name, COALESCE(password_hash, ''), role, referred_by::text, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role, &p.ReferredBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProfile(row pgx.CollectableRow) (models.Profile, error) {
	p, err := scanProfile(row)
	if err != nil {
		return models.Profile{}, err
	}
	return *p, nil
}

// CreateProfile inserts a profile. passwordHash is empty for identity-provider
// accounts.
func (s *Store) CreateProfile(ctx context.Context, email, name, passwordHash, role string) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (email, name, password_hash, role)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING `+profileColumns,
		strings.ToLower(email), name, passwordHash, role)
	p, err := scanProfile(row)
	if isUniqueViolation(err) {
		return nil, models.ErrEmailTaken
	}
	return p, err
}

// FindProfileByEmail returns nil, nil when no profile has the email.
func (s *Store) FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, strings.ToLower(email))
	return scanProfile(row)
}

// EnsureAdmin creates an admin profile unless the email is already taken.
func (s *Store) EnsureAdmin(ctx context.Context, email, password string) (created bool, err error) {
	existing, err := s.FindProfileByEmail(ctx, email)
	if err != nil || existing != nil {
		return false, err
	}
	hash, err := models.HashPassword(password)
	if err != nil {
		return false, err
	}
	if _, err := s.CreateProfile(ctx, email, "Admin", hash, models.RoleAdmin); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID)
	return scanProfile(row)
}

func (s *Store) ListReferees(ctx context.Context, referrerID string) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE referred_by = $1
		ORDER BY created_at`, referrerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, collectProfile)
}

func (s *Store) ResolveCode(ctx context.Context, code string) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id::text FROM profiles WHERE referral_code = $1 LIMIT 1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// LinkReferral sets referred_by and inserts the edge in one transaction. The
// profile update only applies while referred_by is NULL and referee_id is
// unique, so concurrent applies for one user cannot both succeed.
func (s *Store) LinkReferral(ctx context.Context, edge models.Referral) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE profiles SET referred_by = $1, updated_at = NOW()
		WHERE id = $2 AND referred_by IS NULL`, edge.ReferrerID, edge.RefereeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, edge.RefereeID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return referral.ErrProfileNotReady
		}
		return referral.ErrAlreadyReferred
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO referrals (id, referrer_id, referee_id, status, commission_rate, total_commission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		edge.ID, edge.ReferrerID, edge.RefereeID, edge.Status, edge.CommissionRate, edge.TotalCommission, edge.CreatedAt)
	if isUniqueViolation(err) {
		return referral.ErrAlreadyReferred
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const referralColumns = `id::text, referrer_id::text, referee_id::text, status, commission_rate, total_commission, created_at`

func collectReferral(row pgx.CollectableRow) (models.Referral, error) {
	var e models.Referral
	err := row.Scan(&e.ID, &e.ReferrerID, &e.RefereeID, &e.Status, &e.CommissionRate, &e.TotalCommission, &e.CreatedAt)
	return e, err
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+referralColumns+` FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at`, referrerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, collectReferral)
}

func (s *Store) UpdateTotalCommission(ctx context.Context, referrerID, refereeID string, total decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE referrals SET total_commission = $1, updated_at = NOW()
		WHERE referrer_id = $2 AND referee_id = $3`, total, referrerID, refereeID)
	return err
}

func (s *Store) ListReferrerIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT referrer_id::text FROM referrals ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) ListDanglingReferrals(ctx context.Context) ([]models.Referral, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id::text, r.referrer_id::text, r.referee_id::text, r.status, r.commission_rate, r.total_commission, r.created_at
		FROM referrals r
		JOIN profiles p ON p.id = r.referee_id
		WHERE p.referred_by IS NULL
		ORDER BY r.created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, collectReferral)
}

func (s *Store) RepairReferredBy(ctx context.Context, refereeID, referrerID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles SET referred_by = $1, updated_at = NOW()
		WHERE id = $2 AND referred_by IS NULL`, referrerID, refereeID)
	return err
}

const transactionColumns = `id::text, user_id::text, type, amount, description, status, COALESCE(referee_id::text, ''), created_at`

func collectTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.Status, &t.RefereeID, &t.CreatedAt)
	return t, err
}

// likeEscaper makes LIKE wildcards match literally; emails often contain '_'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildTransactionQuery renders q as a SELECT with positional arguments.
func buildTransactionQuery(q referral.TransactionQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if q.Type != "" {
		add("type = $%d", q.Type)
	}
	if q.DescriptionContains != "" {
		add(`description ILIKE '%%' || $%d || '%%' ESCAPE '\'`, likeEscaper.Replace(q.DescriptionContains))
	}

	sql := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at, id`
	return sql, args
}

func (s *Store) QueryTransactions(ctx context.Context, q referral.TransactionQuery) ([]models.Transaction, error) {
	sql, args := buildTransactionQuery(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, collectTransaction)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	t, err := pgx.CollectOneRow(rows, collectTransaction)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertTransaction(ctx context.Context, db execer, t *models.Transaction) error {
	_, err := db.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, description, status, referee_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8)`,
		t.ID, t.UserID, t.Type, t.Amount, t.Description, t.Status, t.RefereeID, t.CreatedAt)
	return err
}

func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	return insertTransaction(ctx, s.pool, t)
}

// InsertWithdrawal locks the user's profile row, re-sums the balance and
// inserts the withdrawal in one transaction. The row lock serializes
// concurrent withdrawals for the same user.
func (s *Store) InsertWithdrawal(ctx context.Context, w *models.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id::text FROM profiles WHERE id = $1 FOR UPDATE`, w.UserID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return referral.ErrProfileNotReady
	}
	if err != nil {
		return err
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, balanceQuery, w.UserID).Scan(&balance)
	if err != nil {
		return err
	}
	if w.Amount.GreaterThan(balance) {
		return referral.ErrInsufficientBalance
	}
	if err := insertTransaction(ctx, tx, w); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// balanceQuery mirrors referral.LedgerBalance.
const balanceQuery = `
	SELECT COALESCE(SUM(CASE
		WHEN type = 'earning' AND status = 'completed' THEN amount
		WHEN type = 'withdrawal' AND status <> 'failed' THEN -amount
		ELSE 0
	END), 0)
	FROM transactions
	WHERE user_id = $1`

func (s *Store) UpdateTransactionDescription(ctx context.Context, id, description, refereeID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET description = $1, referee_id = NULLIF($2, '')::uuid
		WHERE id = $3`, description, refereeID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return referral.ErrTransactionNotFound
	}
	return nil
}

// SettleWithdrawal moves a pending withdrawal to status and, when commission
// is non-nil, records it in the same transaction.
func (s *Store) SettleWithdrawal(ctx context.Context, withdrawalID, status string, commission *models.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE transactions SET status = $1
		WHERE id = $2 AND type = 'withdrawal' AND status = 'pending'`, status, withdrawalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return referral.ErrWithdrawalNotPending
	}
	if commission != nil {
		if err := insertTransaction(ctx, tx, commission); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
