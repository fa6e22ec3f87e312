package approval

import (
	"testing"

	"fin_flow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseApproveDebitsOnce(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "200")
	e := f.expense(t, f.u1, "75.50", domain.ModeCash)

	_, err := f.expenses.Approve(f.ctx, e.ID, f.u2)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	approved, err := f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "124.50")

	_, err = f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.NoError(t, err)
	f.assertBalance(t, f.u1, domain.ModeCash, "124.50")
	assert.Equal(t, int64(1), f.ledgerRows(t, domain.ModelExpense))
	f.assertReplayable(t, f.u1)
}

func TestExpenseInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeUPI, "10")
	e := f.expense(t, f.u1, "10.01", domain.ModeUPI)

	_, err := f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	got, err := f.expenses.Get(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestExpenseSelfApproval(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.admin, domain.ModeBank, "50")
	f.fund(t, f.superadmin, domain.ModeBank, "50")

	own := f.expense(t, f.admin, "20", domain.ModeBank)
	_, err := f.expenses.Approve(f.ctx, own.ID, f.admin)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	f.assertBalance(t, f.admin, domain.ModeBank, "50")

	root := f.expense(t, f.superadmin, "20", domain.ModeBank)
	_, err = f.expenses.Approve(f.ctx, root.ID, f.superadmin)
	require.NoError(t, err)
	f.assertBalance(t, f.superadmin, domain.ModeBank, "30")
}

func TestExpenseRejectRefunds(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "100")
	e := f.expense(t, f.u1, "40", domain.ModeCash)
	_, err := f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.NoError(t, err)

	_, err = f.expenses.Reject(f.ctx, e.ID, f.u1, "not mine")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	rejected, err := f.expenses.Reject(f.ctx, e.ID, f.admin, "no receipt")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.Equal(t, "no receipt", rejected.RejectionReason)
	f.assertBalance(t, f.u1, domain.ModeCash, "100")

	restored, err := f.expenses.Restore(f.ctx, e.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, restored.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "100")

	_, err = f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.NoError(t, err)
	f.assertBalance(t, f.u1, domain.ModeCash, "60")
	f.assertReplayable(t, f.u1)
}

func TestExpenseOverrideRestore(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeUPI, "90")
	e := f.expense(t, f.u1, "90", domain.ModeUPI)
	_, err := f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.NoError(t, err)

	_, err = f.expenses.Restore(f.ctx, e.ID, f.admin)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.assertBalance(t, f.u1, domain.ModeUPI, "0")

	restored, err := f.expenses.Restore(f.ctx, e.ID, f.superadmin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, restored.Status)
	assert.Nil(t, restored.ApprovedBy)
	f.assertBalance(t, f.u1, domain.ModeUPI, "90")
}

func TestExpenseFlagAndResubmit(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "30")
	e := f.expense(t, f.u1, "30", domain.ModeCash)

	flagged, err := f.expenses.Flag(f.ctx, e.ID, f.admin, "blurry receipt")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, flagged.Status)

	_, err = f.expenses.Resubmit(f.ctx, e.ID, f.u2, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	resubmitted, err := f.expenses.Resubmit(f.ctx, e.ID, f.u1, "new photo attached")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, resubmitted.Status)
	assert.Equal(t, "new photo attached", resubmitted.Response)
	f.assertBalance(t, f.u1, domain.ModeCash, "30")
}

func TestExpenseReversalFailureLeavesStatus(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeBank, "15")
	e := f.expense(t, f.u1, "15", domain.ModeBank)
	_, err := f.expenses.Approve(f.ctx, e.ID, f.admin)
	require.NoError(t, err)

	f.failLedgerWrites(t)
	_, err = f.expenses.Reject(f.ctx, e.ID, f.admin, "duplicate")
	require.Error(t, err)

	got, err := f.expenses.Get(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	f.assertBalance(t, f.u1, domain.ModeBank, "0")
}
