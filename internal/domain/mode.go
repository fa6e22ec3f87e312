package domain

import (
	"fmt"     // Error formatting
	"strings" // Case-insensitive parsing

	"github.com/shopspring/decimal" // Decimal money amounts
)

// Mode is one of the balance buckets tracked independently per wallet
type Mode string

const (
	ModeCash Mode = "Cash" // Physical cash
	ModeUPI  Mode = "UPI"  // UPI transfers
	ModeBank Mode = "Bank" // Bank account
)

// Modes lists every payment mode in display order
var Modes = []Mode{ModeCash, ModeUPI, ModeBank}

// Valid reports whether m is a known payment mode
func (m Mode) Valid() bool {
	switch m {
	case ModeCash, ModeUPI, ModeBank:
		return true
	}
	return false
}

// ParseMode converts user input ("cash", "upi", "BANK") into a Mode
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown payment mode %q", ErrValidation, s)
}

// Operation is the direction of a wallet mutation
type Operation string

const (
	OperationAdd      Operation = "add"      // Credit
	OperationSubtract Operation = "subtract" // Debit
)

// Valid reports whether o is add or subtract
func (o Operation) Valid() bool {
	return o == OperationAdd || o == OperationSubtract
}

// Inverse returns the operation that undoes o
func (o Operation) Inverse() Operation {
	if o == OperationAdd {
		return OperationSubtract
	}
	return OperationAdd
}

// ValidateAmount rejects zero, negative and sub-paisa amounts
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount supports at most two decimal places", ErrValidation)
	}
	return nil
}
