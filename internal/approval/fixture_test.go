package approval

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"fin_flow/internal/audit"
	"fin_flow/internal/dbtest"
	"fin_flow/internal/domain"
	"fin_flow/internal/ledger"
	"fin_flow/internal/permission"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordNote struct {
	entity domain.Entity
	id     uint
	status domain.Status
}

// recorder is a Notifier that remembers what it was told
type recorder struct {
	mu       sync.Mutex
	balances map[uint][]domain.Wallet
	records  []recordNote
}

func (r *recorder) BalanceChanged(userID uint, wallet domain.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = append(r.balances[userID], wallet)
}

func (r *recorder) RecordChanged(entity domain.Entity, id uint, status domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, recordNote{entity: entity, id: id, status: status})
}

func (r *recorder) balanceCalls(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.balances[userID])
}

type fixture struct {
	db           *gorm.DB
	ctx          context.Context
	ledger       *ledger.Ledger
	creator      *Creator
	collections  *CollectionMachine
	transactions *TransactionMachine
	expenses     *ExpenseMachine
	notes        *recorder

	superadmin, admin, u1, u2, u3 uint
	funded                        int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	notes := &recorder{balances: make(map[uint][]domain.Wallet)}
	deps := Deps{
		DB:         db,
		Authorizer: permission.NewResolver(db, permission.DefaultPolicy),
		Auditor:    audit.NewLogger(db),
		Notifier:   notes,
		Locker:     NewLocalLocker(),
	}
	return &fixture{
		db:           db,
		ctx:          audit.WithSourceIP(context.Background(), "10.0.0.7"),
		ledger:       ledger.New(db),
		creator:      NewCreator(deps),
		collections:  NewCollectionMachine(deps),
		transactions: NewTransactionMachine(deps),
		expenses:     NewExpenseMachine(deps),
		notes:        notes,
		superadmin:   dbtest.User(t, db, "root", domain.RoleSuperAdmin),
		admin:        dbtest.User(t, db, "admin", domain.RoleAdmin),
		u1:           dbtest.User(t, db, "uone", domain.RoleUser),
		u2:           dbtest.User(t, db, "utwo", domain.RoleUser),
		u3:           dbtest.User(t, db, "uthree", domain.RoleUser),
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fund credits a wallet directly through the ledger
func (f *fixture) fund(t *testing.T, userID uint, mode domain.Mode, amt string) {
	t.Helper()
	f.funded++
	_, err := f.ledger.UpdateWalletBalance(f.ctx, ledger.Mutation{
		UserID:         userID,
		Mode:           mode,
		Amount:         amount(amt),
		Operation:      domain.OperationAdd,
		Reason:         "opening_balance",
		IdempotencyKey: fmt.Sprintf("fund:%d", f.funded),
	})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID uint, mode domain.Mode) decimal.Decimal {
	t.Helper()
	w, err := f.ledger.GetOrCreateWallet(f.ctx, userID)
	require.NoError(t, err)
	return w.Balance(mode)
}

func (f *fixture) assertBalance(t *testing.T, userID uint, mode domain.Mode, want string) {
	t.Helper()
	got := f.balance(t, userID, mode)
	assert.True(t, got.Equal(amount(want)), "user %d %s: want %s, got %s", userID, mode, want, got)
}

// assertReplayable checks that every wallet equals the replay of its ledger
func (f *fixture) assertReplayable(t *testing.T, users ...uint) {
	t.Helper()
	r := ledger.NewReconciler(f.db)
	for _, u := range users {
		report, err := r.Replay(f.ctx, u)
		require.NoError(t, err)
		assert.True(t, report.Consistent, "wallet of user %d drifted from its ledger: %+v", u, report)
	}
}

func (f *fixture) ledgerRows(t *testing.T, model string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.WalletTransaction{}).Where("related_model = ?", model).Count(&n).Error)
	return n
}

// failLedgerWrites makes every wallet transaction insert fail until the test ends
func (f *fixture) failLedgerWrites(t *testing.T) {
	t.Helper()
	name := "test:fail_wallet_transactions"
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "wallet_transactions" {
			_ = tx.AddError(fmt.Errorf("disk full"))
		}
	}))
	t.Cleanup(func() { _ = f.db.Callback().Create().Remove(name) })
}

func (f *fixture) collection(t *testing.T, collectedBy uint, receiver *uint, amt string, mode domain.Mode) *domain.Collection {
	t.Helper()
	c, err := f.creator.CreateCollection(f.ctx, CollectionInput{
		CollectedBy:      collectedBy,
		AssignedReceiver: receiver,
		Amount:           amount(amt),
		Mode:             mode,
		CustomerName:     "Acme Traders",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) transaction(t *testing.T, sender, receiver uint, amt string, mode domain.Mode) *domain.Transaction {
	t.Helper()
	tr, err := f.creator.CreateTransaction(f.ctx, TransactionInput{
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     amount(amt),
		Mode:       mode,
		Purpose:    "settlement",
	})
	require.NoError(t, err)
	return tr
}

func (f *fixture) expense(t *testing.T, spentBy uint, amt string, mode domain.Mode) *domain.Expense {
	t.Helper()
	e, err := f.creator.CreateExpense(f.ctx, ExpenseInput{
		SpentBy:     spentBy,
		Amount:      amount(amt),
		Mode:        mode,
		Category:    "fuel",
		Description: "van refill",
	})
	require.NoError(t, err)
	return e
}

func uintPtr(v uint) *uint { return &v }
