package domain

import "github.com/shopspring/decimal"

// Transaction is a peer transfer from Sender to Receiver, settled when the
// receiver approves it.
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SenderID        uint            `gorm:"index;not null" json:"sender_id"`
	ReceiverID      uint            `gorm:"index;not null" json:"receiver_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Mode            Mode            `gorm:"size:8;not null" json:"mode"`
	Purpose         string          `gorm:"size:255" json:"purpose,omitempty"`
	Status          Status          `gorm:"size:16;index;not null" json:"status"`
	FlagReason      string          `gorm:"size:500" json:"flag_reason,omitempty"`
	FlaggedBy       *uint           `json:"flagged_by,omitempty"`
	Response        string          `gorm:"size:500" json:"response,omitempty"`
	RejectionReason string          `gorm:"size:500" json:"rejection_reason,omitempty"`
	Revision        uint            `gorm:"not null" json:"revision"`
	CreatedAt       int64           `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt       int64           `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// Involves reports whether userID is the sender or the receiver
func (t *Transaction) Involves(userID uint) bool {
	return t.SenderID == userID || t.ReceiverID == userID
}
