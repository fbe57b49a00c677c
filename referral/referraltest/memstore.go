// Package referraltest provides an in-memory referral.Store for tests.
package referraltest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pawankshetri11/payoutclickmain-sub001/models"
	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

// Store is a mutex-guarded referral.Store. Reads return copies.
type Store struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	referrals map[string]models.Referral // keyed by referee id
	txs       map[string]models.Transaction
	txOrder   []string

	// Err, when set, is returned by every method.
	Err error
	// ProfileAppearsAfter hides a profile until it has been read this many
	// times, mimicking asynchronous provisioning.
	ProfileAppearsAfter map[string]int
	// ResolveCalls counts CodeResolver lookups.
	ResolveCalls int

	profileReads map[string]int
}

var _ referral.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		profiles:            make(map[string]models.Profile),
		referrals:           make(map[string]models.Referral),
		txs:                 make(map[string]models.Transaction),
		ProfileAppearsAfter: make(map[string]int),
		profileReads:        make(map[string]int),
	}
}

// AddProfile stores p, filling in an id and timestamps when empty.
func (s *Store) AddProfile(p models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Role == "" {
		p.Role = models.RoleUser
	}
	p.UpdatedAt = p.CreatedAt
	s.profiles[p.ID] = p
	return p
}

// AddTransaction stores tx, filling in an id when empty.
func (s *Store) AddTransaction(tx models.Transaction) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Status == "" {
		tx.Status = models.TransactionCompleted
	}
	s.txs[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	return tx
}

// AddReferral stores an edge without touching the referee's profile.
func (s *Store) AddReferral(e models.Referral) models.Referral {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = models.ReferralActive
	}
	s.referrals[e.RefereeID] = e
	return e
}

func (s *Store) Profile(id string) (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	return p, ok
}

func (s *Store) Referral(refereeID string) (models.Referral, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.referrals[refereeID]
	return e, ok
}

func (s *Store) Transaction(id string) (models.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	return tx, ok
}

func (s *Store) ReferralCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.referrals)
}

func (s *Store) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.profileReads[userID]++
	if s.profileReads[userID] <= s.ProfileAppearsAfter[userID] {
		return nil, nil
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) ListReferees(_ context.Context, referrerID string) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Profile
	for _, p := range s.profiles {
		if p.ReferredBy != nil && *p.ReferredBy == referrerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ResolveCode(_ context.Context, code string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResolveCalls++
	if s.Err != nil {
		return "", false, s.Err
	}
	for id := range s.profiles {
		if referral.GenerateCode(id) == code {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (s *Store) LinkReferral(_ context.Context, edge models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, exists := s.referrals[edge.RefereeID]; exists {
		return referral.ErrAlreadyReferred
	}
	p, ok := s.profiles[edge.RefereeID]
	if !ok {
		return referral.ErrProfileNotReady
	}
	if p.HasReferrer() {
		return referral.ErrAlreadyReferred
	}
	referrerID := edge.ReferrerID
	p.ReferredBy = &referrerID
	s.profiles[p.ID] = p
	s.referrals[edge.RefereeID] = edge
	return nil
}

func (s *Store) ListReferralsByReferrer(_ context.Context, referrerID string) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Referral
	for _, e := range s.referrals {
		if e.ReferrerID == referrerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateTotalCommission(_ context.Context, referrerID, refereeID string, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	e, ok := s.referrals[refereeID]
	if !ok || e.ReferrerID != referrerID {
		return nil
	}
	e.TotalCommission = total
	s.referrals[refereeID] = e
	return nil
}

func (s *Store) ListReferrerIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.referrals {
		if !seen[e.ReferrerID] {
			seen[e.ReferrerID] = true
			out = append(out, e.ReferrerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListDanglingReferrals(_ context.Context) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Referral
	for _, e := range s.referrals {
		if p, ok := s.profiles[e.RefereeID]; ok && !p.HasReferrer() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) RepairReferredBy(_ context.Context, refereeID, referrerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.profiles[refereeID]
	if !ok || p.HasReferrer() {
		return nil
	}
	p.ReferredBy = &referrerID
	s.profiles[refereeID] = p
	return nil
}

func (s *Store) QueryTransactions(_ context.Context, q referral.TransactionQuery) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.Transaction{}
	for _, id := range s.txOrder {
		tx := s.txs[id]
		if q.UserID != "" && tx.UserID != q.UserID {
			continue
		}
		if q.Type != "" && tx.Type != q.Type {
			continue
		}
		if q.DescriptionContains != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(q.DescriptionContains)) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	tx, ok := s.txs[id]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.txs[tx.ID] = *tx
	s.txOrder = append(s.txOrder, tx.ID)
	return nil
}

// InsertWithdrawal checks the balance and inserts under the store lock.
func (s *Store) InsertWithdrawal(_ context.Context, w *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	var own []models.Transaction
	for _, id := range s.txOrder {
		if tx := s.txs[id]; tx.UserID == w.UserID {
			own = append(own, tx)
		}
	}
	if w.Amount.GreaterThan(referral.LedgerBalance(own)) {
		return referral.ErrInsufficientBalance
	}
	s.txs[w.ID] = *w
	s.txOrder = append(s.txOrder, w.ID)
	return nil
}

func (s *Store) UpdateTransactionDescription(_ context.Context, id, description, refereeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	tx, ok := s.txs[id]
	if !ok {
		return referral.ErrTransactionNotFound
	}
	tx.Description = description
	tx.RefereeID = refereeID
	s.txs[id] = tx
	return nil
}

func (s *Store) SettleWithdrawal(_ context.Context, withdrawalID, status string, commission *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	w, ok := s.txs[withdrawalID]
	if !ok || w.Status != models.TransactionPending {
		return referral.ErrWithdrawalNotPending
	}
	w.Status = status
	s.txs[withdrawalID] = w
	if commission != nil {
		s.txs[commission.ID] = *commission
		s.txOrder = append(s.txOrder, commission.ID)
	}
	return nil
}

// CreateProfile mirrors the Postgres store: emails are unique, case-insensitively.
func (s *Store) CreateProfile(_ context.Context, email, name, passwordHash, role string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	email = strings.ToLower(email)
	for _, p := range s.profiles {
		if p.Email == email {
			return nil, models.ErrEmailTaken
		}
	}
	now := time.Now()
	p := models.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.profiles[p.ID] = p
	return &p, nil
}

func (s *Store) FindProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	email = strings.ToLower(email)
	for _, p := range s.profiles {
		if p.Email == email {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) AdminStats(_ context.Context) (*models.AdminStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	stats := &models.AdminStats{PendingAmount: decimal.Zero, CommissionPaid: decimal.Zero}
	today := time.Now().Truncate(24 * time.Hour)
	for _, p := range s.profiles {
		stats.TotalUsers++
		if !p.CreatedAt.Before(today) {
			stats.NewUsersToday++
		}
		if p.HasReferrer() {
			stats.ReferredUsers++
		}
	}
	stats.TotalReferrals = int64(len(s.referrals))
	for _, tx := range s.txs {
		switch {
		case tx.Type == models.TransactionWithdrawal && tx.Status == models.TransactionPending:
			stats.PendingWithdrawals++
			stats.PendingAmount = stats.PendingAmount.Add(tx.Amount)
		case referral.IsCommission(tx):
			stats.CommissionPaid = stats.CommissionPaid.Add(tx.Amount)
			if tx.RefereeID == "" && !strings.Contains(tx.Description, "@") {
				stats.UnattributedCommissions++
			}
		}
	}
	return stats, nil
}
