package approval

import (
	"sync"
	"testing"

	"fin_flow/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionApproveSettlesOnce(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "500")
	tr := f.transaction(t, f.u1, f.u2, "500", domain.ModeCash)

	completed, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "0")
	f.assertBalance(t, f.u2, domain.ModeCash, "500")

	again, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, again.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "0")
	f.assertBalance(t, f.u2, domain.ModeCash, "500")
	assert.Equal(t, int64(2), f.ledgerRows(t, domain.ModelTransaction))
	f.assertReplayable(t, f.u1, f.u2)
}

func TestTransactionReceiverOnlyApproval(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeUPI, "100")
	tr := f.transaction(t, f.u1, f.u2, "50", domain.ModeUPI)

	for _, actor := range []uint{f.u1, f.u3, f.admin, f.superadmin} {
		_, err := f.transactions.Approve(f.ctx, tr.ID, actor)
		require.ErrorIs(t, err, domain.ErrUnauthorized, "actor %d", actor)
	}
	f.assertBalance(t, f.u1, domain.ModeUPI, "100")
	f.assertBalance(t, f.u2, domain.ModeUPI, "0")
}

func TestTransactionInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "49.99")
	f.fund(t, f.u1, domain.ModeBank, "1000")
	tr := f.transaction(t, f.u1, f.u2, "50", domain.ModeCash)

	_, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	got, err := f.transactions.Get(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "49.99")
	f.assertBalance(t, f.u2, domain.ModeCash, "0")
}

func TestTransactionBalanceConservation(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeBank, "300")
	f.fund(t, f.u2, domain.ModeBank, "200")
	total := func() decimal.Decimal {
		return f.balance(t, f.u1, domain.ModeBank).Add(f.balance(t, f.u2, domain.ModeBank)).Add(f.balance(t, f.u3, domain.ModeBank))
	}
	before := total()

	a := f.transaction(t, f.u1, f.u2, "120.40", domain.ModeBank)
	b := f.transaction(t, f.u2, f.u3, "80", domain.ModeBank)
	_, err := f.transactions.Approve(f.ctx, a.ID, f.u2)
	require.NoError(t, err)
	_, err = f.transactions.Approve(f.ctx, b.ID, f.u3)
	require.NoError(t, err)
	_, err = f.transactions.Reject(f.ctx, a.ID, f.u3, "disputed")
	require.NoError(t, err)

	assert.True(t, before.Equal(total()), "money was created or destroyed: %s -> %s", before, total())
	f.assertBalance(t, f.u1, domain.ModeBank, "300")
	f.assertBalance(t, f.u2, domain.ModeBank, "120")
	f.assertBalance(t, f.u3, domain.ModeBank, "80")
	f.assertReplayable(t, f.u1, f.u2, f.u3)
}

func TestTransactionRejectFromTerminalStates(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "100")

	settled := f.transaction(t, f.u1, f.u2, "40", domain.ModeCash)
	_, err := f.transactions.Approve(f.ctx, settled.ID, f.u2)
	require.NoError(t, err)
	_, err = f.transactions.Reject(f.ctx, settled.ID, f.u3, "disputed")
	require.NoError(t, err)

	_, err = f.transactions.Reject(f.ctx, settled.ID, f.u3, "disputed again")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	got, err := f.transactions.Get(f.ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, "disputed", got.RejectionReason)

	withdrawn := f.transaction(t, f.u1, f.u2, "25", domain.ModeCash)
	_, err = f.transactions.Withdraw(f.ctx, withdrawn.ID, f.u1)
	require.NoError(t, err)
	_, err = f.transactions.Reject(f.ctx, withdrawn.ID, f.u2, "too late")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	got, err = f.transactions.Get(f.ctx, withdrawn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	f.assertBalance(t, f.u1, domain.ModeCash, "100")
	f.assertBalance(t, f.u2, domain.ModeCash, "0")
	f.assertReplayable(t, f.u1, f.u2)
}

func TestTransactionCancelReversesAndAllowsReapproval(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "100")
	tr := f.transaction(t, f.u1, f.u2, "40", domain.ModeCash)
	_, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)

	_, err = f.transactions.Cancel(f.ctx, tr.ID, f.u3)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	cancelled, err := f.transactions.Cancel(f.ctx, tr.ID, f.u1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, cancelled.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "100")
	f.assertBalance(t, f.u2, domain.ModeCash, "0")

	// Cancelling an unsettled transfer changes nothing.
	_, err = f.transactions.Cancel(f.ctx, tr.ID, f.admin)
	require.NoError(t, err)
	f.assertBalance(t, f.u1, domain.ModeCash, "100")

	_, err = f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)
	f.assertBalance(t, f.u1, domain.ModeCash, "60")
	f.assertBalance(t, f.u2, domain.ModeCash, "40")
	f.assertReplayable(t, f.u1, f.u2)
}

func TestTransactionWithdraw(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeUPI, "10")
	pending := f.transaction(t, f.u1, f.u2, "10", domain.ModeUPI)

	_, err := f.transactions.Withdraw(f.ctx, pending.ID, f.u2)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	withdrawn, err := f.transactions.Withdraw(f.ctx, pending.ID, f.u1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, withdrawn.Status)

	_, err = f.transactions.Approve(f.ctx, pending.ID, f.u2)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	settled := f.transaction(t, f.u1, f.u2, "10", domain.ModeUPI)
	_, err = f.transactions.Approve(f.ctx, settled.ID, f.u2)
	require.NoError(t, err)
	_, err = f.transactions.Withdraw(f.ctx, settled.ID, f.u1)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.assertBalance(t, f.u2, domain.ModeUPI, "10")
}

func TestTransactionFlagAndResubmit(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeBank, "70")
	tr := f.transaction(t, f.u1, f.u2, "70", domain.ModeBank)
	_, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)

	_, err = f.transactions.Flag(f.ctx, tr.ID, f.u1, "wrong account")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	flagged, err := f.transactions.Flag(f.ctx, tr.ID, f.admin, "wrong account")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFlagged, flagged.Status)
	f.assertBalance(t, f.u2, domain.ModeBank, "70")

	_, err = f.transactions.Resubmit(f.ctx, tr.ID, f.u3, "n/a")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	resubmitted, err := f.transactions.Resubmit(f.ctx, tr.ID, f.u1, "account confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, resubmitted.Status)

	_, err = f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)
	f.assertBalance(t, f.u1, domain.ModeBank, "0")
	f.assertBalance(t, f.u2, domain.ModeBank, "70")
	assert.Equal(t, int64(2), f.ledgerRows(t, domain.ModelTransaction))
}

func TestTransactionConcurrentApprovalsSettleOnce(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "25")
	tr := f.transaction(t, f.u1, f.u2, "25", domain.ModeCash)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	f.assertBalance(t, f.u1, domain.ModeCash, "0")
	f.assertBalance(t, f.u2, domain.ModeCash, "25")
}

func TestTransactionReversalFailureLeavesStatus(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.u1, domain.ModeCash, "30")
	tr := f.transaction(t, f.u1, f.u2, "30", domain.ModeCash)
	_, err := f.transactions.Approve(f.ctx, tr.ID, f.u2)
	require.NoError(t, err)

	f.failLedgerWrites(t)
	_, err = f.transactions.Reject(f.ctx, tr.ID, f.u2, "changed my mind")
	require.Error(t, err)

	got, err := f.transactions.Get(f.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	f.assertBalance(t, f.u1, domain.ModeCash, "0")
	f.assertBalance(t, f.u2, domain.ModeCash, "30")
}
