package approval

import (
	"regexp"
	"testing"

	"fin_flow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCollectionValidation(t *testing.T) {
	f := newFixture(t)
	cases := []CollectionInput{
		{CollectedBy: 0, Amount: amount("10"), Mode: domain.ModeCash},
		{CollectedBy: f.u1, Amount: amount("0"), Mode: domain.ModeCash},
		{CollectedBy: f.u1, Amount: amount("-3"), Mode: domain.ModeCash},
		{CollectedBy: f.u1, Amount: amount("1.001"), Mode: domain.ModeCash},
		{CollectedBy: f.u1, Amount: amount("10"), Mode: domain.Mode("Cheque")},
	}
	for _, in := range cases {
		_, err := f.creator.CreateCollection(f.ctx, in)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", in)
	}
}

func TestCreateCollectionVoucher(t *testing.T) {
	f := newFixture(t)
	a := f.collection(t, f.u1, nil, "1", domain.ModeCash)
	b := f.collection(t, f.u1, nil, "1", domain.ModeCash)
	assert.Regexp(t, regexp.MustCompile(`^COL-[0-9A-F]{12}$`), a.VoucherNumber)
	assert.NotEqual(t, a.VoucherNumber, b.VoucherNumber)
	assert.Equal(t, f.u1, *a.CollectedBy)
	assert.Nil(t, a.AssignedReceiver)
	assert.Equal(t, f.u1, a.Receiver())
}

func TestAutoPayRedirectsReceiver(t *testing.T) {
	f := newFixture(t)
	setting, err := f.creator.SetAutoPay(f.ctx, domain.ModeUPI, f.u3, true, f.superadmin)
	require.NoError(t, err)
	assert.True(t, setting.Enabled)
	assert.Equal(t, f.u3, setting.ReceiverID)

	upi := f.collection(t, f.u1, uintPtr(f.u2), "100", domain.ModeUPI)
	assert.Equal(t, f.u3, *upi.AssignedReceiver, "AutoPay wins over the nominal receiver")

	cash := f.collection(t, f.u1, uintPtr(f.u2), "100", domain.ModeCash)
	assert.Equal(t, f.u2, *cash.AssignedReceiver, "other modes are untouched")

	_, err = f.collections.Approve(f.ctx, upi.ID, f.u2)
	require.NoError(t, err)
	f.assertBalance(t, f.u3, domain.ModeUPI, "100")
	f.assertBalance(t, f.u2, domain.ModeUPI, "0")

	_, err = f.creator.SetAutoPay(f.ctx, domain.ModeUPI, f.u3, false, f.superadmin)
	require.NoError(t, err)
	later := f.collection(t, f.u1, uintPtr(f.u2), "5", domain.ModeUPI)
	assert.Equal(t, f.u2, *later.AssignedReceiver)

	settings, err := f.creator.AutoPaySettings(f.ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.False(t, settings[0].Enabled)
}

func TestSetAutoPayValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.creator.SetAutoPay(f.ctx, domain.Mode("Gold"), f.u3, true, f.superadmin)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.creator.SetAutoPay(f.ctx, domain.ModeCash, 0, true, f.superadmin)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.creator.CreateTransaction(f.ctx, TransactionInput{SenderID: f.u1, ReceiverID: f.u1, Amount: amount("5"), Mode: domain.ModeCash})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.creator.CreateTransaction(f.ctx, TransactionInput{SenderID: f.u1, Amount: amount("5"), Mode: domain.ModeCash})
	assert.ErrorIs(t, err, domain.ErrValidation)

	tr := f.transaction(t, f.u1, f.u2, "5", domain.ModeCash)
	assert.Equal(t, domain.StatusPending, tr.Status)
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.creator.CreateExpense(f.ctx, ExpenseInput{SpentBy: f.u1, Amount: amount("0.001"), Mode: domain.ModeBank})
	assert.ErrorIs(t, err, domain.ErrValidation)

	e := f.expense(t, f.u1, "12.34", domain.ModeBank)
	assert.Equal(t, domain.StatusPending, e.Status)
	assert.Equal(t, f.u1, e.SpentBy)
}
