// Package approval drives collections, transactions and expenses through
// their lifecycles and keeps wallet balances equal to the approved records.
//
// Every transition runs under a per-record lock and inside one storage
// transaction: the record is re-read with a row lock, the wallet effect is
// applied or reversed through the ledger, and the status is written with a
// revision check. Audit entries and notifications are published only after
// the storage transaction commits.
package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fin_flow/internal/audit"
	"fin_flow/internal/domain"
	"fin_flow/internal/ledger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Authorizer resolves whether an actor holds a capability on an entity.
type Authorizer interface {
	CanPerform(ctx context.Context, actorID uint, action domain.Action, entity domain.Entity) (bool, error)
}

// Auditor records successful transitions.
type Auditor interface {
	Record(ctx context.Context, entry domain.AuditLog) error
}

// Notifier pushes changes to connected clients. Implementations must not block.
type Notifier interface {
	BalanceChanged(userID uint, wallet domain.Wallet)
	RecordChanged(entity domain.Entity, id uint, status domain.Status)
}

// Deps wires a machine to storage and its collaborators. Auditor, Notifier
// and Locker are optional.
type Deps struct {
	DB         *gorm.DB
	Authorizer Authorizer
	Auditor    Auditor
	Notifier   Notifier
	Locker     Locker
}

type engine struct {
	db         *gorm.DB
	ledger     *ledger.Ledger
	reconciler *ledger.Reconciler
	authz      Authorizer
	auditor    Auditor
	notifier   Notifier
	locker     Locker
}

func newEngine(d Deps) *engine {
	locker := d.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &engine{
		db:         d.DB,
		ledger:     ledger.New(d.DB),
		reconciler: ledger.NewReconciler(d.DB),
		authz:      d.Authorizer,
		auditor:    d.Auditor,
		notifier:   d.Notifier,
		locker:     locker,
	}
}

// grants is the subset of requested capabilities the actor holds.
type grants map[domain.Action]bool

func (e *engine) grantsFor(ctx context.Context, actorID uint, entity domain.Entity, actions ...domain.Action) (grants, error) {
	g := make(grants, len(actions))
	if e.authz == nil {
		return g, nil
	}
	for _, a := range actions {
		ok, err := e.authz.CanPerform(ctx, actorID, a, entity)
		if err != nil {
			return nil, fmt.Errorf("resolve %s permission on %s: %w", a, entity, err)
		}
		g[a] = ok
	}
	return g, nil
}

// txn holds the storage handles bound to one storage transaction.
type txn struct {
	db         *gorm.DB
	ledger     *ledger.Ledger
	reconciler *ledger.Reconciler
}

// apply runs the mutations in order and remembers the resulting wallets.
func (t *txn) apply(ctx context.Context, ch *change, muts ...ledger.Mutation) error {
	for _, m := range muts {
		w, err := t.ledger.UpdateWalletBalance(ctx, m)
		if err != nil {
			return err
		}
		ch.wallets = append(ch.wallets, *w)
	}
	return nil
}

// reverse emits the inverse of everything the log still holds for the record.
func (t *txn) reverse(ctx context.Context, ch *change, model string, relatedID uint, reason string, actorID uint, keyPrefix string) error {
	muts, err := t.reconciler.Inverse(ctx, model, relatedID, reason, actorID, keyPrefix)
	if err != nil {
		return err
	}
	return t.apply(ctx, ch, muts...)
}

// change collects what a transition did so it can be published after commit.
type change struct {
	entity  domain.Entity
	id      uint
	event   domain.Event
	actorID uint
	noop    bool
	summary string
	status  domain.Status
	before  any
	after   any
	wallets []domain.Wallet
}

// skip marks the transition as a no-op that left the record in status.
func (ch *change) skip(status domain.Status) {
	ch.noop = true
	ch.status = status
}

func (ch *change) record(before, after any, status domain.Status, summary string) {
	ch.before = before
	ch.after = after
	ch.status = status
	ch.summary = summary
}

// run executes fn for one record under its lock and inside a storage transaction.
func (e *engine) run(ctx context.Context, entity domain.Entity, id uint, event domain.Event, actorID uint, fn func(context.Context, *txn, *change) error) error {
	unlock, err := e.locker.Lock(ctx, fmt.Sprintf("%s:%d", entity, id))
	if err != nil {
		return fmt.Errorf("lock %s %d: %w", entity, id, err)
	}
	defer unlock()

	start := time.Now()
	ch := &change{entity: entity, id: id, event: event, actorID: actorID}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txn{
			db:         tx,
			ledger:     e.ledger.WithTx(tx),
			reconciler: e.reconciler.WithTx(tx),
		}, ch)
	})
	observe(entity, event, start, err)

	fields := logrus.Fields{
		"entity":   entity,
		"id":       id,
		"event":    event,
		"actor_id": actorID,
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Transition refused")
		return err
	}
	fields["status"] = ch.status
	fields["noop"] = ch.noop
	logrus.WithFields(fields).Info("Transition applied")
	e.publish(ctx, ch)
	return nil
}

func (e *engine) publish(ctx context.Context, ch *change) {
	if ch.noop {
		return
	}
	if e.auditor != nil {
		entry := domain.AuditLog{
			ActorID:    ch.actorID,
			Action:     ch.summary,
			ActionType: string(ch.event),
			EntityType: ch.entity,
			EntityID:   ch.id,
			Before:     snapshot(ch.before),
			After:      snapshot(ch.after),
			SourceIP:   audit.SourceIP(ctx),
		}
		if err := e.auditor.Record(ctx, entry); err != nil {
			logrus.WithFields(logrus.Fields{
				"entity": ch.entity,
				"id":     ch.id,
				"event":  ch.event,
			}).WithError(err).Error("Audit entry lost")
		}
	}
	if e.notifier == nil {
		return
	}
	// Only the final snapshot of each touched wallet is pushed.
	var users []uint
	latest := make(map[uint]domain.Wallet)
	for _, w := range ch.wallets {
		if _, ok := latest[w.UserID]; !ok {
			users = append(users, w.UserID)
		}
		latest[w.UserID] = w
	}
	for _, u := range users {
		e.notifier.BalanceChanged(u, latest[u])
	}
	e.notifier.RecordChanged(ch.entity, ch.id, ch.status)
}

func snapshot(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// lockRecord loads a record with a row lock where the dialect supports one.
func lockRecord[T any](tx *gorm.DB, entity domain.Entity, id uint) (*T, error) {
	rec := new(T)
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %d", domain.ErrNotFound, entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", entity, id, err)
	}
	return rec, nil
}

// saveRevision writes fields only if the record still carries the revision
// that was read, and bumps it.
func saveRevision[T any](tx *gorm.DB, id, revision uint, fields map[string]any) error {
	fields["revision"] = revision + 1
	res := tx.Model(new(T)).Where("id = ? AND revision = ?", id, revision).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("save record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: record %d was modified concurrently", domain.ErrConflict, id)
	}
	return nil
}

// nextStatus consults the normal table first and falls back to the override
// table when the actor holds the override capability.
func nextStatus(normal, override domain.TransitionTable, from domain.Status, ev domain.Event, g grants) (domain.Status, error) {
	to, err := normal.Next(from, ev)
	if err == nil {
		return to, nil
	}
	if override != nil && g[domain.ActionOverride] {
		if to, oerr := override.Next(from, ev); oerr == nil {
			return to, nil
		}
	}
	return from, err
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrUnauthorized}, args...)...)
}

func requireText(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return nil
}
