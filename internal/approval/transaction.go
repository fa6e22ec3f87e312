package approval

import (
	"context"
	"errors"
	"fmt"

	"fin_flow/internal/domain"
	"fin_flow/internal/ledger"

	"gorm.io/gorm"
)

// TransactionMachine governs peer transfers. A transfer is settled while the
// log holds its debit/credit pair; every reversal cancels exactly that pair.
type TransactionMachine struct {
	*engine
}

// NewTransactionMachine creates a TransactionMachine
func NewTransactionMachine(d Deps) *TransactionMachine {
	return &TransactionMachine{engine: newEngine(d)}
}

// Get returns a transaction by id
func (m *TransactionMachine) Get(ctx context.Context, id uint) (*domain.Transaction, error) {
	var tr domain.Transaction
	err := m.db.WithContext(ctx).First(&tr, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: transaction %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}
	return &tr, nil
}

// Approve settles the transfer. Only the receiver may approve. The sender's
// balance is checked and both legs are written in one storage transaction.
func (m *TransactionMachine) Approve(ctx context.Context, id, actorID uint) (*domain.Transaction, error) {
	var out domain.Transaction
	err := m.run(ctx, domain.EntityTransaction, id, domain.EventApprove, actorID, func(ctx context.Context, t *txn, ch *change) error {
		tr, err := lockRecord[domain.Transaction](t.db, domain.EntityTransaction, id)
		if err != nil {
			return err
		}
		if actorID != tr.ReceiverID {
			return denied("only the receiver may approve transaction %d", id)
		}
		next, err := domain.TransactionTransitions.Next(tr.Status, domain.EventApprove)
		if err != nil {
			return err
		}
		settled, err := t.reconciler.Applied(ctx, domain.ModelTransaction, tr.ID)
		if err != nil {
			return err
		}
		if settled && tr.Status == next {
			ch.skip(tr.Status)
			out = *tr
			return nil
		}

		before := *tr
		if !settled {
			if err := m.settle(ctx, t, ch, tr, actorID); err != nil {
				return err
			}
		}
		if err := saveRevision[domain.Transaction](t.db, tr.ID, tr.Revision, map[string]any{"status": next}); err != nil {
			return err
		}
		tr.Status, tr.Revision = next, tr.Revision+1
		ch.record(before, *tr, next, fmt.Sprintf("Approved transaction %d", tr.ID))
		out = *tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *TransactionMachine) settle(ctx context.Context, t *txn, ch *change, tr *domain.Transaction, actorID uint) error {
	ok, err := t.ledger.CheckBalance(ctx, tr.SenderID, tr.Mode, tr.Amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: sender %d cannot cover %s %s", domain.ErrInsufficientBalance, tr.SenderID, tr.Amount, tr.Mode)
	}
	keyPrefix := fmt.Sprintf("transaction:%d:r%d", tr.ID, tr.Revision)
	return t.apply(ctx, ch,
		ledger.Mutation{
			UserID:         tr.SenderID,
			Mode:           tr.Mode,
			Amount:         tr.Amount,
			Operation:      domain.OperationSubtract,
			Reason:         domain.ReasonTransactionOut,
			RelatedID:      tr.ID,
			RelatedModel:   domain.ModelTransaction,
			PerformedBy:    actorID,
			IdempotencyKey: keyPrefix + ":debit",
		},
		ledger.Mutation{
			UserID:         tr.ReceiverID,
			Mode:           tr.Mode,
			Amount:         tr.Amount,
			Operation:      domain.OperationAdd,
			Reason:         domain.ReasonTransactionIn,
			RelatedID:      tr.ID,
			RelatedModel:   domain.ModelTransaction,
			PerformedBy:    actorID,
			IdempotencyKey: keyPrefix + ":credit",
		},
	)
}

func (m *TransactionMachine) unsettle(ctx context.Context, t *txn, ch *change, tr *domain.Transaction, actorID uint) error {
	keyPrefix := fmt.Sprintf("transaction:%d:r%d", tr.ID, tr.Revision)
	return t.reverse(ctx, ch, domain.ModelTransaction, tr.ID, domain.ReasonTransactionReversal, actorID, keyPrefix)
}

// Reject reverses a settled transfer and marks it Rejected.
func (m *TransactionMachine) Reject(ctx context.Context, id, actorID uint, reason string) (*domain.Transaction, error) {
	return m.transition(ctx, id, actorID, domain.EventReject, func(tr *domain.Transaction) (map[string]any, error) {
		tr.RejectionReason = reason
		return map[string]any{"rejection_reason": reason}, nil
	}, true)
}

// Cancel reverses a settled transfer and returns it to Pending so it can be
// approved again. The sender, the receiver and holders of the cancel
// capability may cancel.
func (m *TransactionMachine) Cancel(ctx context.Context, id, actorID uint) (*domain.Transaction, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityTransaction, domain.ActionCancel)
	if err != nil {
		return nil, err
	}
	return m.transition(ctx, id, actorID, domain.EventCancel, func(tr *domain.Transaction) (map[string]any, error) {
		if !tr.Involves(actorID) && !g[domain.ActionCancel] {
			return nil, denied("user %d may not cancel transaction %d", actorID, id)
		}
		return map[string]any{}, nil
	}, true)
}

// Withdraw lets the sender abandon a transfer that was never settled.
func (m *TransactionMachine) Withdraw(ctx context.Context, id, actorID uint) (*domain.Transaction, error) {
	return m.transition(ctx, id, actorID, domain.EventWithdraw, func(tr *domain.Transaction) (map[string]any, error) {
		if tr.SenderID != actorID {
			return nil, denied("only the sender may withdraw transaction %d", id)
		}
		return map[string]any{}, nil
	}, true)
}

// Flag puts the transfer on hold without touching balances.
func (m *TransactionMachine) Flag(ctx context.Context, id, actorID uint, reason string) (*domain.Transaction, error) {
	if err := requireText("flag reason", reason); err != nil {
		return nil, err
	}
	g, err := m.grantsFor(ctx, actorID, domain.EntityTransaction, domain.ActionFlag)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionFlag] {
		return nil, denied("user %d may not flag transactions", actorID)
	}
	return m.transition(ctx, id, actorID, domain.EventFlag, func(tr *domain.Transaction) (map[string]any, error) {
		tr.FlagReason, tr.FlaggedBy = reason, &actorID
		return map[string]any{"flag_reason": reason, "flagged_by": actorID}, nil
	}, false)
}

// Resubmit answers a flag and returns the transfer to Pending.
func (m *TransactionMachine) Resubmit(ctx context.Context, id, actorID uint, response string) (*domain.Transaction, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityTransaction, domain.ActionResubmit)
	if err != nil {
		return nil, err
	}
	return m.transition(ctx, id, actorID, domain.EventResubmit, func(tr *domain.Transaction) (map[string]any, error) {
		if !tr.Involves(actorID) && !g[domain.ActionResubmit] {
			return nil, denied("user %d may not resubmit transaction %d", actorID, id)
		}
		tr.Response = response
		return map[string]any{"response": response}, nil
	}, false)
}

// transition runs the common shape of every non-approve event: authorize and
// prepare extra fields, look up the target state, optionally reverse the
// settlement, then write the status.
func (m *TransactionMachine) transition(ctx context.Context, id, actorID uint, ev domain.Event, prepare func(*domain.Transaction) (map[string]any, error), reverses bool) (*domain.Transaction, error) {
	var out domain.Transaction
	err := m.run(ctx, domain.EntityTransaction, id, ev, actorID, func(ctx context.Context, t *txn, ch *change) error {
		tr, err := lockRecord[domain.Transaction](t.db, domain.EntityTransaction, id)
		if err != nil {
			return err
		}
		before := *tr
		fields, err := prepare(tr)
		if err != nil {
			return err
		}
		next, err := domain.TransactionTransitions.Next(tr.Status, ev)
		if err != nil {
			return err
		}
		if reverses {
			if err := m.unsettle(ctx, t, ch, tr, actorID); err != nil {
				return err
			}
		}
		if next == tr.Status && len(ch.wallets) == 0 && len(fields) == 0 {
			ch.skip(tr.Status)
			out = *tr
			return nil
		}
		fields["status"] = next
		if err := saveRevision[domain.Transaction](t.db, tr.ID, tr.Revision, fields); err != nil {
			return err
		}
		tr.Status, tr.Revision = next, tr.Revision+1
		ch.record(before, *tr, next, fmt.Sprintf("%s transaction %d", pastTense(ev), tr.ID))
		out = *tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func pastTense(ev domain.Event) string {
	switch ev {
	case domain.EventApprove:
		return "Approved"
	case domain.EventReject:
		return "Rejected"
	case domain.EventFlag:
		return "Flagged"
	case domain.EventResubmit:
		return "Resubmitted"
	case domain.EventRestore:
		return "Restored"
	case domain.EventDelete:
		return "Deleted"
	case domain.EventCancel:
		return "Cancelled"
	case domain.EventWithdraw:
		return "Withdrew"
	}
	return string(ev)
}
