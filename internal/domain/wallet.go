package domain

import "github.com/shopspring/decimal" // Decimal money amounts

// Wallet Model
type Wallet struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                                              // Primary key
	UserID       uint            `gorm:"uniqueIndex" json:"user_id"`                                        // Foreign key to User
	CashBalance  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"cash_balance"`                   // Cash bucket
	UPIBalance   decimal.Decimal `gorm:"column:upi_balance;type:decimal(20,2);not null" json:"upi_balance"` // UPI bucket
	BankBalance  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"bank_balance"`                   // Bank bucket
	TotalBalance decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_balance"`                  // Sum of the three buckets
	Version      uint            `gorm:"not null" json:"version"`                                           // Optimistic lock counter
	UpdatedAt    int64           `gorm:"autoUpdateTime:milli" json:"updated_at"`                            // Last mutation in milliseconds
}

// Balance returns the balance held in the given mode
func (w *Wallet) Balance(m Mode) decimal.Decimal {
	switch m {
	case ModeCash:
		return w.CashBalance
	case ModeUPI:
		return w.UPIBalance
	case ModeBank:
		return w.BankBalance
	}
	return decimal.Zero
}

// SetBalance overwrites one mode bucket and refreshes the total
func (w *Wallet) SetBalance(m Mode, v decimal.Decimal) {
	switch m {
	case ModeCash:
		w.CashBalance = v
	case ModeUPI:
		w.UPIBalance = v
	case ModeBank:
		w.BankBalance = v
	}
	w.Recalculate()
}

// Recalculate derives TotalBalance from the mode buckets
func (w *Wallet) Recalculate() {
	w.TotalBalance = w.CashBalance.Add(w.UPIBalance).Add(w.BankBalance)
}

// Balances returns the mode buckets keyed by mode
func (w *Wallet) Balances() map[Mode]decimal.Decimal {
	return map[Mode]decimal.Decimal{
		ModeCash: w.CashBalance,
		ModeUPI:  w.UPIBalance,
		ModeBank: w.BankBalance,
	}
}
