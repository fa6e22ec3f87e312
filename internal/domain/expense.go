package domain

import "github.com/shopspring/decimal"

// Expense is money spent by a user out of their own wallet
type Expense struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SpentBy         uint            `gorm:"index;not null" json:"spent_by"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Mode            Mode            `gorm:"size:8;not null" json:"mode"`
	Category        string          `gorm:"size:64" json:"category,omitempty"`
	Description     string          `gorm:"size:500" json:"description,omitempty"`
	Status          Status          `gorm:"size:16;index;not null" json:"status"`
	ApprovedBy      *uint           `json:"approved_by,omitempty"`
	FlagReason      string          `gorm:"size:500" json:"flag_reason,omitempty"`
	FlaggedBy       *uint           `json:"flagged_by,omitempty"`
	Response        string          `gorm:"size:500" json:"response,omitempty"`
	RejectionReason string          `gorm:"size:500" json:"rejection_reason,omitempty"`
	Revision        uint            `gorm:"not null" json:"revision"`
	CreatedAt       int64           `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt       int64           `gorm:"autoUpdateTime:milli" json:"updated_at"`
}
