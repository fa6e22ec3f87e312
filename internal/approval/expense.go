package approval

import (
	"context"
	"errors"
	"fmt"

	"fin_flow/internal/domain"
	"fin_flow/internal/ledger"

	"gorm.io/gorm"
)

// ExpenseMachine governs expense claims: approval debits the spender, every
// way back out of Approved credits the same amount again.
type ExpenseMachine struct {
	*engine
}

// NewExpenseMachine creates an ExpenseMachine
func NewExpenseMachine(d Deps) *ExpenseMachine {
	return &ExpenseMachine{engine: newEngine(d)}
}

// Get returns an expense by id
func (m *ExpenseMachine) Get(ctx context.Context, id uint) (*domain.Expense, error) {
	var e domain.Expense
	err := m.db.WithContext(ctx).First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: expense %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load expense %d: %w", id, err)
	}
	return &e, nil
}

// Approve debits the spender once and marks the expense Approved.
func (m *ExpenseMachine) Approve(ctx context.Context, id, actorID uint) (*domain.Expense, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityExpense, domain.ActionApprove, domain.ActionSelfApprove)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionApprove] {
		return nil, denied("user %d may not approve expenses", actorID)
	}
	var out domain.Expense
	err = m.run(ctx, domain.EntityExpense, id, domain.EventApprove, actorID, func(ctx context.Context, t *txn, ch *change) error {
		e, err := lockRecord[domain.Expense](t.db, domain.EntityExpense, id)
		if err != nil {
			return err
		}
		if e.SpentBy == actorID && !g[domain.ActionSelfApprove] {
			return denied("expense %d cannot be approved by its spender", id)
		}
		next, err := domain.ExpenseTransitions.Next(e.Status, domain.EventApprove)
		if err != nil {
			return err
		}
		applied, err := t.reconciler.Applied(ctx, domain.ModelExpense, e.ID)
		if err != nil {
			return err
		}
		if applied && e.Status == next {
			ch.skip(e.Status)
			out = *e
			return nil
		}

		before := *e
		if !applied {
			ok, err := t.ledger.CheckBalance(ctx, e.SpentBy, e.Mode, e.Amount)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: user %d cannot cover %s %s", domain.ErrInsufficientBalance, e.SpentBy, e.Amount, e.Mode)
			}
			if err := t.apply(ctx, ch, ledger.Mutation{
				UserID:         e.SpentBy,
				Mode:           e.Mode,
				Amount:         e.Amount,
				Operation:      domain.OperationSubtract,
				Reason:         domain.ReasonExpense,
				RelatedID:      e.ID,
				RelatedModel:   domain.ModelExpense,
				PerformedBy:    actorID,
				IdempotencyKey: fmt.Sprintf("expense:%d:r%d:debit", e.ID, e.Revision),
			}); err != nil {
				return err
			}
		}
		if err := saveRevision[domain.Expense](t.db, e.ID, e.Revision, map[string]any{
			"status":      next,
			"approved_by": actorID,
		}); err != nil {
			return err
		}
		e.Status, e.ApprovedBy, e.Revision = next, &actorID, e.Revision+1
		ch.record(before, *e, next, fmt.Sprintf("Approved expense %d", e.ID))
		out = *e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject refunds an approved expense and marks it Rejected.
func (m *ExpenseMachine) Reject(ctx context.Context, id, actorID uint, reason string) (*domain.Expense, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityExpense, domain.ActionReject)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionReject] {
		return nil, denied("user %d may not reject expenses", actorID)
	}
	return m.transition(ctx, id, actorID, domain.EventReject, g, func(e *domain.Expense) (map[string]any, error) {
		e.RejectionReason = reason
		return map[string]any{"rejection_reason": reason}, nil
	}, true)
}

// Flag puts the expense on hold without touching balances.
func (m *ExpenseMachine) Flag(ctx context.Context, id, actorID uint, reason string) (*domain.Expense, error) {
	if err := requireText("flag reason", reason); err != nil {
		return nil, err
	}
	g, err := m.grantsFor(ctx, actorID, domain.EntityExpense, domain.ActionFlag)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionFlag] {
		return nil, denied("user %d may not flag expenses", actorID)
	}
	return m.transition(ctx, id, actorID, domain.EventFlag, g, func(e *domain.Expense) (map[string]any, error) {
		e.FlagReason, e.FlaggedBy = reason, &actorID
		return map[string]any{"flag_reason": reason, "flagged_by": actorID}, nil
	}, false)
}

// Resubmit answers a flag and returns the expense to Pending.
func (m *ExpenseMachine) Resubmit(ctx context.Context, id, actorID uint, response string) (*domain.Expense, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityExpense, domain.ActionResubmit)
	if err != nil {
		return nil, err
	}
	return m.transition(ctx, id, actorID, domain.EventResubmit, g, func(e *domain.Expense) (map[string]any, error) {
		if e.SpentBy != actorID && !g[domain.ActionResubmit] {
			return nil, denied("user %d may not resubmit expense %d", actorID, id)
		}
		e.Response = response
		return map[string]any{"response": response}, nil
	}, false)
}

// Restore ("unapprove") returns the expense to Pending, refunding it if the
// debit is outstanding.
func (m *ExpenseMachine) Restore(ctx context.Context, id, actorID uint) (*domain.Expense, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityExpense, domain.ActionRestore, domain.ActionOverride)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionRestore] && !g[domain.ActionOverride] {
		return nil, denied("user %d may not restore expenses", actorID)
	}
	return m.transition(ctx, id, actorID, domain.EventRestore, g, func(e *domain.Expense) (map[string]any, error) {
		e.ApprovedBy = nil
		return map[string]any{"approved_by": nil}, nil
	}, true)
}

func (m *ExpenseMachine) transition(ctx context.Context, id, actorID uint, ev domain.Event, g grants, prepare func(*domain.Expense) (map[string]any, error), reverses bool) (*domain.Expense, error) {
	var out domain.Expense
	err := m.run(ctx, domain.EntityExpense, id, ev, actorID, func(ctx context.Context, t *txn, ch *change) error {
		e, err := lockRecord[domain.Expense](t.db, domain.EntityExpense, id)
		if err != nil {
			return err
		}
		before := *e
		fields, err := prepare(e)
		if err != nil {
			return err
		}
		next, err := nextStatus(domain.ExpenseTransitions, domain.ExpenseOverrideTransitions, e.Status, ev, g)
		if err != nil {
			return err
		}
		if reverses {
			keyPrefix := fmt.Sprintf("expense:%d:r%d", e.ID, e.Revision)
			if err := t.reverse(ctx, ch, domain.ModelExpense, e.ID, domain.ReasonExpenseReversal, actorID, keyPrefix); err != nil {
				return err
			}
		}
		fields["status"] = next
		if err := saveRevision[domain.Expense](t.db, e.ID, e.Revision, fields); err != nil {
			return err
		}
		e.Status, e.Revision = next, e.Revision+1
		ch.record(before, *e, next, fmt.Sprintf("%s expense %d", pastTense(ev), e.ID))
		out = *e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
