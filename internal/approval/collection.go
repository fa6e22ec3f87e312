package approval

import (
	"context"
	"errors"
	"fmt"

	"fin_flow/internal/domain"
	"fin_flow/internal/ledger"

	"gorm.io/gorm"
)

// CollectionMachine governs the Collection lifecycle. The wallet credit of an
// approved collection hangs off its system collection (the mirror): the mirror
// exists exactly while the credit is outstanding.
type CollectionMachine struct {
	*engine
}

// NewCollectionMachine creates a CollectionMachine
func NewCollectionMachine(d Deps) *CollectionMachine {
	return &CollectionMachine{engine: newEngine(d)}
}

// Get returns a collection by id
func (m *CollectionMachine) Get(ctx context.Context, id uint) (*domain.Collection, error) {
	var c domain.Collection
	err := m.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: collection %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %d: %w", id, err)
	}
	return &c, nil
}

// Mirror returns the system collection of id, or nil when none exists
func (m *CollectionMachine) Mirror(ctx context.Context, id uint) (*domain.Collection, error) {
	return findMirror(m.db.WithContext(ctx), id)
}

// Approve credits the receiver once and marks the collection Approved.
// Repeated calls leave balances untouched.
func (m *CollectionMachine) Approve(ctx context.Context, id, actorID uint) (*domain.Collection, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityCollection, domain.ActionSelfApprove)
	if err != nil {
		return nil, err
	}
	var out domain.Collection
	err = m.run(ctx, domain.EntityCollection, id, domain.EventApprove, actorID, func(ctx context.Context, t *txn, ch *change) error {
		c, err := lockCollection(t.db, id)
		if err != nil {
			return err
		}
		if c.CollectedByUser(actorID) && !g[domain.ActionSelfApprove] {
			return denied("collection %d cannot be approved by its collector", id)
		}
		next, err := domain.CollectionTransitions.Next(c.Status, domain.EventApprove)
		if err != nil {
			return err
		}
		mirror, err := findMirror(t.db, c.ID)
		if err != nil {
			return err
		}
		if mirror != nil && c.Status == next {
			ch.skip(c.Status)
			out = *c
			return nil
		}

		before := *c
		if mirror == nil {
			if err := m.credit(ctx, t, ch, c, actorID); err != nil {
				return err
			}
		}
		if err := saveRevision[domain.Collection](t.db, c.ID, c.Revision, map[string]any{
			"status":      next,
			"approved_by": actorID,
		}); err != nil {
			return err
		}
		c.Status, c.ApprovedBy, c.Revision = next, &actorID, c.Revision+1
		ch.record(before, *c, next, fmt.Sprintf("Approved collection %s", c.VoucherNumber))
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// credit creates the mirror and credits the receiver against it.
func (m *CollectionMachine) credit(ctx context.Context, t *txn, ch *change, c *domain.Collection, actorID uint) error {
	receiver := c.Receiver()
	if receiver == 0 {
		return fmt.Errorf("%w: collection %d has no receiver", domain.ErrValidation, c.ID)
	}
	parentID := c.ID
	mirror := domain.Collection{
		VoucherNumber:      "SYS-" + c.VoucherNumber,
		AssignedReceiver:   &receiver,
		Amount:             c.Amount,
		Mode:               c.Mode,
		CustomerName:       c.CustomerName,
		Status:             domain.StatusApproved,
		IsSystemCollection: true,
		ParentCollectionID: &parentID,
		ApprovedBy:         &actorID,
	}
	if err := t.db.Create(&mirror).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: collection %d already has a system collection", domain.ErrConflict, c.ID)
		}
		return fmt.Errorf("create system collection for %d: %w", c.ID, err)
	}
	return t.apply(ctx, ch, ledger.Mutation{
		UserID:         receiver,
		Mode:           c.Mode,
		Amount:         c.Amount,
		Operation:      domain.OperationAdd,
		Reason:         domain.ReasonCollection,
		RelatedID:      mirror.ID,
		RelatedModel:   domain.ModelCollection,
		PerformedBy:    actorID,
		IdempotencyKey: ledgerKey(c) + ":credit",
	})
}

// ledgerKey prefixes the idempotency keys written for the current revision
// of c. Ids of deleted collections can be handed out again, vouchers cannot.
func ledgerKey(c *domain.Collection) string {
	return fmt.Sprintf("collection:%d:%s:r%d", c.ID, c.VoucherNumber, c.Revision)
}

// reverse undoes the credit of c, if any, and removes its mirror. The status
// of c is untouched; callers write it afterwards in the same transaction.
func (m *CollectionMachine) reverse(ctx context.Context, t *txn, ch *change, c *domain.Collection, actorID uint) error {
	mirror, err := findMirror(t.db, c.ID)
	if err != nil || mirror == nil {
		return err
	}
	if err := t.reverse(ctx, ch, domain.ModelCollection, mirror.ID, domain.ReasonCollectionRejection, actorID, ledgerKey(c)); err != nil {
		return err
	}
	if err := t.db.Delete(&domain.Collection{}, mirror.ID).Error; err != nil {
		return fmt.Errorf("delete system collection %d: %w", mirror.ID, err)
	}
	return nil
}

// Reject reverses an outstanding credit and marks the collection Rejected.
// Holders of the reject capability may reject; the credited receiver may
// decline their own collection.
func (m *CollectionMachine) Reject(ctx context.Context, id, actorID uint, reason string) (*domain.Collection, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityCollection, domain.ActionReject)
	if err != nil {
		return nil, err
	}
	var out domain.Collection
	err = m.run(ctx, domain.EntityCollection, id, domain.EventReject, actorID, func(ctx context.Context, t *txn, ch *change) error {
		c, err := lockCollection(t.db, id)
		if err != nil {
			return err
		}
		if c.Receiver() != actorID && !g[domain.ActionReject] {
			return denied("user %d may not reject collection %d", actorID, id)
		}
		next, err := domain.CollectionTransitions.Next(c.Status, domain.EventReject)
		if err != nil {
			return err
		}
		before := *c
		if err := m.reverse(ctx, t, ch, c, actorID); err != nil {
			return err
		}
		if err := saveRevision[domain.Collection](t.db, c.ID, c.Revision, map[string]any{
			"status":           next,
			"rejection_reason": reason,
		}); err != nil {
			return err
		}
		c.Status, c.RejectionReason, c.Revision = next, reason, c.Revision+1
		ch.record(before, *c, next, fmt.Sprintf("Rejected collection %s", c.VoucherNumber))
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Flag puts the collection on hold. Balances are not touched.
func (m *CollectionMachine) Flag(ctx context.Context, id, actorID uint, reason string) (*domain.Collection, error) {
	if err := requireText("flag reason", reason); err != nil {
		return nil, err
	}
	g, err := m.grantsFor(ctx, actorID, domain.EntityCollection, domain.ActionFlag)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionFlag] {
		return nil, denied("user %d may not flag collections", actorID)
	}
	var out domain.Collection
	err = m.run(ctx, domain.EntityCollection, id, domain.EventFlag, actorID, func(ctx context.Context, t *txn, ch *change) error {
		c, err := lockCollection(t.db, id)
		if err != nil {
			return err
		}
		next, err := domain.CollectionTransitions.Next(c.Status, domain.EventFlag)
		if err != nil {
			return err
		}
		before := *c
		if err := saveRevision[domain.Collection](t.db, c.ID, c.Revision, map[string]any{
			"status":      next,
			"flag_reason": reason,
			"flagged_by":  actorID,
		}); err != nil {
			return err
		}
		c.Status, c.FlagReason, c.FlaggedBy, c.Revision = next, reason, &actorID, c.Revision+1
		ch.record(before, *c, next, fmt.Sprintf("Flagged collection %s", c.VoucherNumber))
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Resubmit answers a flag and returns the collection to Pending. The
// collector, the assigned receiver and holders of the resubmit capability may
// resubmit.
func (m *CollectionMachine) Resubmit(ctx context.Context, id, actorID uint, response string) (*domain.Collection, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityCollection, domain.ActionResubmit)
	if err != nil {
		return nil, err
	}
	var out domain.Collection
	err = m.run(ctx, domain.EntityCollection, id, domain.EventResubmit, actorID, func(ctx context.Context, t *txn, ch *change) error {
		c, err := lockCollection(t.db, id)
		if err != nil {
			return err
		}
		owner := c.CollectedByUser(actorID) || (c.AssignedReceiver != nil && *c.AssignedReceiver == actorID)
		if !owner && !g[domain.ActionResubmit] {
			return denied("user %d may not resubmit collection %d", actorID, id)
		}
		next, err := domain.CollectionTransitions.Next(c.Status, domain.EventResubmit)
		if err != nil {
			return err
		}
		before := *c
		if err := saveRevision[domain.Collection](t.db, c.ID, c.Revision, map[string]any{
			"status":   next,
			"response": response,
		}); err != nil {
			return err
		}
		c.Status, c.Response, c.Revision = next, response, c.Revision+1
		ch.record(before, *c, next, fmt.Sprintf("Resubmitted collection %s", c.VoucherNumber))
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Restore ("unapprove") returns a rejected collection to Pending. Holders of
// the override capability may restore from any non-Pending state. An
// outstanding credit is reversed first.
func (m *CollectionMachine) Restore(ctx context.Context, id, actorID uint) (*domain.Collection, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityCollection, domain.ActionRestore, domain.ActionOverride)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionRestore] && !g[domain.ActionOverride] {
		return nil, denied("user %d may not restore collections", actorID)
	}
	var out domain.Collection
	err = m.run(ctx, domain.EntityCollection, id, domain.EventRestore, actorID, func(ctx context.Context, t *txn, ch *change) error {
		c, err := lockCollection(t.db, id)
		if err != nil {
			return err
		}
		next, err := nextStatus(domain.CollectionTransitions, domain.CollectionOverrideTransitions, c.Status, domain.EventRestore, g)
		if err != nil {
			return err
		}
		before := *c
		if err := m.reverse(ctx, t, ch, c, actorID); err != nil {
			return err
		}
		if err := saveRevision[domain.Collection](t.db, c.ID, c.Revision, map[string]any{
			"status":      next,
			"approved_by": nil,
		}); err != nil {
			return err
		}
		c.Status, c.ApprovedBy, c.Revision = next, nil, c.Revision+1
		ch.record(before, *c, next, fmt.Sprintf("Restored collection %s", c.VoucherNumber))
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the collection permanently. Approved collections can only be
// deleted under the override capability; their credit is reversed first. The
// returned value is the record as it was before deletion.
func (m *CollectionMachine) Delete(ctx context.Context, id, actorID uint) (*domain.Collection, error) {
	g, err := m.grantsFor(ctx, actorID, domain.EntityCollection, domain.ActionDelete, domain.ActionOverride)
	if err != nil {
		return nil, err
	}
	if !g[domain.ActionDelete] {
		return nil, denied("user %d may not delete collections", actorID)
	}
	var out domain.Collection
	err = m.run(ctx, domain.EntityCollection, id, domain.EventDelete, actorID, func(ctx context.Context, t *txn, ch *change) error {
		c, err := lockCollection(t.db, id)
		if err != nil {
			return err
		}
		next, err := nextStatus(domain.CollectionTransitions, domain.CollectionOverrideTransitions, c.Status, domain.EventDelete, g)
		if err != nil {
			return err
		}
		if err := m.reverse(ctx, t, ch, c, actorID); err != nil {
			return err
		}
		res := t.db.Where("revision = ?", c.Revision).Delete(&domain.Collection{}, c.ID)
		if res.Error != nil {
			return fmt.Errorf("delete collection %d: %w", c.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: collection %d was modified concurrently", domain.ErrConflict, c.ID)
		}
		ch.record(*c, nil, next, fmt.Sprintf("Deleted collection %s", c.VoucherNumber))
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// lockCollection loads a human collection for a transition. System
// collections follow their parent and are never transitioned directly.
func lockCollection(tx *gorm.DB, id uint) (*domain.Collection, error) {
	c, err := lockRecord[domain.Collection](tx, domain.EntityCollection, id)
	if err != nil {
		return nil, err
	}
	if c.IsSystemCollection {
		return nil, fmt.Errorf("%w: collection %d is system generated", domain.ErrInvalidTransition, id)
	}
	return c, nil
}

func findMirror(tx *gorm.DB, parentID uint) (*domain.Collection, error) {
	var mirrors []domain.Collection
	err := tx.Where("parent_collection_id = ? AND is_system_collection = ?", parentID, true).Limit(1).Find(&mirrors).Error
	if err != nil {
		return nil, fmt.Errorf("look up system collection of %d: %w", parentID, err)
	}
	if len(mirrors) == 0 {
		return nil, nil
	}
	return &mirrors[0], nil
}
