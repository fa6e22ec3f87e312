package domain

import "github.com/shopspring/decimal" // Decimal money amounts

// Ledger reasons recorded on wallet transactions
const (
	ReasonCollection          = "collection"
	ReasonCollectionRejection = "collection_rejection"
	ReasonTransactionOut      = "transaction_out"
	ReasonTransactionIn       = "transaction_in"
	ReasonTransactionReversal = "transaction_reversal"
	ReasonExpense             = "expense"
	ReasonExpenseReversal     = "expense_reversal"
)

// Related models referenced by wallet transactions
const (
	ModelCollection  = "Collection"
	ModelTransaction = "Transaction"
	ModelExpense     = "Expense"
)

// WalletTransaction is one immutable balance mutation. Replaying every row of
// a user in id order reproduces the wallet.
type WalletTransaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`                                     // Primary key
	UserID         uint            `gorm:"index;not null" json:"user_id"`                            // Wallet owner
	Mode           Mode            `gorm:"size:8;not null" json:"mode"`                              // Bucket touched
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`                // Always positive
	Operation      Operation       `gorm:"size:8;not null" json:"operation"`                         // add or subtract
	Reason         string          `gorm:"size:40;not null" json:"reason"`                           // Why the balance moved
	RelatedID      uint            `gorm:"index:idx_wallet_tx_related" json:"related_id"`            // Money movement record id
	RelatedModel   string          `gorm:"size:20;index:idx_wallet_tx_related" json:"related_model"` // Money movement record type
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`         // Mode balance after the mutation
	PerformedBy    uint            `gorm:"index" json:"performed_by"`                                // Actor that caused it
	IdempotencyKey string          `gorm:"size:128;uniqueIndex;not null" json:"idempotency_key"`     // At-most-once guard
	CreatedAt      int64           `gorm:"autoCreateTime:milli" json:"created_at"`                   // Timestamp in milliseconds
}

// Signed returns +amount for credits and -amount for debits
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Operation == OperationSubtract {
		return t.Amount.Neg()
	}
	return t.Amount
}
