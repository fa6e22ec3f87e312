package ledger

import (
	"context"
	"fmt"

	"fin_flow/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Position is the net effect the log holds for one record on one wallet bucket.
type Position struct {
	UserID uint
	Mode   domain.Mode
	Net    decimal.Decimal
}

// Reconciler answers whether a record's wallet effect is outstanding and
// derives the exact inverse. It only reads the log.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a Reconciler over db
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// WithTx returns a Reconciler reading inside tx
func (r *Reconciler) WithTx(tx *gorm.DB) *Reconciler {
	return &Reconciler{db: tx}
}

// Outstanding sums the log rows referencing the record per user and mode and
// returns the non-zero positions in the order they first appeared.
func (r *Reconciler) Outstanding(ctx context.Context, relatedModel string, relatedID uint) ([]Position, error) {
	var rows []domain.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("related_model = ? AND related_id = ?", relatedModel, relatedID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load ledger rows for %s %d: %w", relatedModel, relatedID, err)
	}

	type bucket struct {
		user uint
		mode domain.Mode
	}
	var order []bucket
	net := make(map[bucket]decimal.Decimal)
	for _, row := range rows {
		b := bucket{user: row.UserID, mode: row.Mode}
		if _, seen := net[b]; !seen {
			order = append(order, b)
			net[b] = decimal.Zero
		}
		net[b] = net[b].Add(row.Signed())
	}

	var out []Position
	for _, b := range order {
		if net[b].IsZero() {
			continue
		}
		out = append(out, Position{UserID: b.user, Mode: b.mode, Net: net[b]})
	}
	return out, nil
}

// Applied reports whether the record still has a wallet effect in the log.
func (r *Reconciler) Applied(ctx context.Context, relatedModel string, relatedID uint) (bool, error) {
	positions, err := r.Outstanding(ctx, relatedModel, relatedID)
	if err != nil {
		return false, err
	}
	return len(positions) > 0, nil
}

// Inverse builds the mutations that cancel every outstanding position of the
// record. keyPrefix scopes their idempotency keys to one reversal.
func (r *Reconciler) Inverse(ctx context.Context, relatedModel string, relatedID uint, reason string, performedBy uint, keyPrefix string) ([]Mutation, error) {
	positions, err := r.Outstanding(ctx, relatedModel, relatedID)
	if err != nil {
		return nil, err
	}
	out := make([]Mutation, 0, len(positions))
	for _, p := range positions {
		op := domain.OperationSubtract
		if p.Net.IsNegative() {
			op = domain.OperationAdd
		}
		out = append(out, Mutation{
			UserID:         p.UserID,
			Mode:           p.Mode,
			Amount:         p.Net.Abs(),
			Operation:      op,
			Reason:         reason,
			RelatedID:      relatedID,
			RelatedModel:   relatedModel,
			PerformedBy:    performedBy,
			IdempotencyKey: fmt.Sprintf("%s:revert:%d:%s", keyPrefix, p.UserID, p.Mode),
		})
	}
	return out, nil
}

// Report compares a stored wallet with the balances replayed from its log.
type Report struct {
	UserID     uint                            `json:"user_id"`
	Entries    int                             `json:"entries"`
	Stored     map[domain.Mode]decimal.Decimal `json:"stored"`
	Replayed   map[domain.Mode]decimal.Decimal `json:"replayed"`
	Consistent bool                            `json:"consistent"`
}

// Replay folds every log row of the user in id order and checks the result
// against the stored wallet.
func (r *Reconciler) Replay(ctx context.Context, userID uint) (*Report, error) {
	var w domain.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&w).Error
	if err != nil {
		return nil, fmt.Errorf("load wallet for user %d: %w", userID, err)
	}
	var rows []domain.WalletTransaction
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ledger for user %d: %w", userID, err)
	}

	report := &Report{
		UserID:   userID,
		Entries:  len(rows),
		Stored:   w.Balances(),
		Replayed: make(map[domain.Mode]decimal.Decimal, len(domain.Modes)),
	}
	for _, m := range domain.Modes {
		report.Replayed[m] = decimal.Zero
	}
	for _, row := range rows {
		report.Replayed[row.Mode] = report.Replayed[row.Mode].Add(row.Signed())
	}
	report.Consistent = true
	for _, m := range domain.Modes {
		if !report.Stored[m].Equal(report.Replayed[m]) {
			report.Consistent = false
		}
	}
	return report, nil
}
