// Package ledger owns wallet balances and the append-only wallet transaction
// log. Nothing else in the module writes to either table.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"fin_flow/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mutation describes one balance change and the record that caused it.
type Mutation struct {
	UserID       uint
	Mode         domain.Mode
	Amount       decimal.Decimal
	Operation    domain.Operation
	Reason       string
	RelatedID    uint
	RelatedModel string
	PerformedBy  uint
	// IdempotencyKey is unique across the log. A mutation whose key is already
	// recorded fails with domain.ErrConflict. Empty keys get a random one.
	IdempotencyKey string
}

// Ledger is the wallet mutation primitive. A Ledger bound to a transaction
// with WithTx takes part in that transaction.
type Ledger struct {
	db *gorm.DB
}

// New creates a Ledger over db
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a Ledger that runs every statement inside tx
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// GetOrCreateWallet returns the user's wallet, creating a zeroed one on first use.
func (l *Ledger) GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	return l.getOrCreate(ctx, userID, false)
}

func (l *Ledger) getOrCreate(ctx context.Context, userID uint, forUpdate bool) (*domain.Wallet, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: wallet owner is required", domain.ErrValidation)
	}
	w, err := l.find(ctx, userID, forUpdate)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load wallet for user %d: %w", userID, err)
	}
	fresh := domain.Wallet{UserID: userID}
	fresh.Recalculate()
	// A concurrent creator may win the unique index; either way reload.
	if err := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("create wallet for user %d: %w", userID, err)
	}
	w, err = l.find(ctx, userID, forUpdate)
	if err != nil {
		return nil, fmt.Errorf("reload wallet for user %d: %w", userID, err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"wallet_id": w.ID,
	}).Info("Wallet created")
	return w, nil
}

func (l *Ledger) find(ctx context.Context, userID uint, forUpdate bool) (*domain.Wallet, error) {
	q := l.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var w domain.Wallet
	if err := q.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// CheckBalance reports whether the user holds at least amount in mode. It
// does not reserve funds; callers that need the answer to hold must check and
// mutate inside the same transaction.
func (l *Ledger) CheckBalance(ctx context.Context, userID uint, mode domain.Mode, amount decimal.Decimal) (bool, error) {
	if !mode.Valid() {
		return false, fmt.Errorf("%w: unknown payment mode %q", domain.ErrValidation, mode)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return false, err
	}
	w, err := l.getOrCreate(ctx, userID, true)
	if err != nil {
		return false, err
	}
	return w.Balance(mode).GreaterThanOrEqual(amount), nil
}

// UpdateWalletBalance applies m to the wallet and appends the matching log
// row with the post-mutation snapshot. Subtracting below zero is allowed here;
// the balance gate belongs to the caller.
func (l *Ledger) UpdateWalletBalance(ctx context.Context, m Mutation) (*domain.Wallet, error) {
	if err := validate(m); err != nil {
		return nil, err
	}
	w, err := l.getOrCreate(ctx, m.UserID, true)
	if err != nil {
		return nil, err
	}

	delta := m.Amount
	if m.Operation == domain.OperationSubtract {
		delta = delta.Neg()
	}
	w.SetBalance(m.Mode, w.Balance(m.Mode).Add(delta))

	res := l.db.WithContext(ctx).Model(&domain.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]any{
			"cash_balance":  w.CashBalance,
			"upi_balance":   w.UPIBalance,
			"bank_balance":  w.BankBalance,
			"total_balance": w.TotalBalance,
			"version":       w.Version + 1,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update wallet %d: %w", w.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: wallet %d changed underneath", domain.ErrConflict, w.ID)
	}
	w.Version++

	key := m.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	entry := domain.WalletTransaction{
		UserID:         m.UserID,
		Mode:           m.Mode,
		Amount:         m.Amount,
		Operation:      m.Operation,
		Reason:         m.Reason,
		RelatedID:      m.RelatedID,
		RelatedModel:   m.RelatedModel,
		BalanceAfter:   w.Balance(m.Mode),
		PerformedBy:    m.PerformedBy,
		IdempotencyKey: key,
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: ledger entry %s already recorded", domain.ErrConflict, key)
		}
		return nil, fmt.Errorf("append wallet transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       m.UserID,
		"mode":          m.Mode,
		"operation":     m.Operation,
		"amount":        m.Amount.String(),
		"reason":        m.Reason,
		"related_model": m.RelatedModel,
		"related_id":    m.RelatedID,
		"balance_after": entry.BalanceAfter.String(),
	}).Debug("Wallet balance updated")
	return w, nil
}

func validate(m Mutation) error {
	if !m.Mode.Valid() {
		return fmt.Errorf("%w: unknown payment mode %q", domain.ErrValidation, m.Mode)
	}
	if !m.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", domain.ErrValidation, m.Operation)
	}
	if m.Reason == "" {
		return fmt.Errorf("%w: mutation reason is required", domain.ErrValidation)
	}
	return domain.ValidateAmount(m.Amount)
}

// History returns one page of the user's wallet transactions, newest first,
// together with the total row count.
func (l *Ledger) History(ctx context.Context, userID uint, page, pageSize int) ([]domain.WalletTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	q := l.db.WithContext(ctx).Model(&domain.WalletTransaction{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count wallet transactions: %w", err)
	}
	var rows []domain.WalletTransaction
	if err := q.Order("id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list wallet transactions: %w", err)
	}
	return rows, total, nil
}
