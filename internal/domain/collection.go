package domain

import "github.com/shopspring/decimal"

// Collection records money received from a third party. Approving a human
// collection spawns a system collection (the mirror) that alone references
// the wallet credit.
type Collection struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	VoucherNumber      string          `gorm:"size:64;uniqueIndex;not null" json:"voucher_number"`
	CollectedBy        *uint           `gorm:"index" json:"collected_by"`
	AssignedReceiver   *uint           `gorm:"index" json:"assigned_receiver"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Mode               Mode            `gorm:"size:8;not null" json:"mode"`
	CustomerName       string          `gorm:"size:120" json:"customer_name,omitempty"`
	Notes              string          `gorm:"size:500" json:"notes,omitempty"`
	Status             Status          `gorm:"size:16;index;not null" json:"status"`
	IsSystemCollection bool            `gorm:"not null" json:"is_system_collection"`
	ParentCollectionID *uint           `gorm:"uniqueIndex" json:"parent_collection_id,omitempty"`
	ApprovedBy         *uint           `json:"approved_by,omitempty"`
	FlagReason         string          `gorm:"size:500" json:"flag_reason,omitempty"`
	FlaggedBy          *uint           `json:"flagged_by,omitempty"`
	Response           string          `gorm:"size:500" json:"response,omitempty"`
	RejectionReason    string          `gorm:"size:500" json:"rejection_reason,omitempty"`
	Revision           uint            `gorm:"not null" json:"revision"`
	CreatedAt          int64           `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt          int64           `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// Receiver is the user entitled to the money: the assigned receiver, or the
// collector when nobody was assigned.
func (c *Collection) Receiver() uint {
	if c.AssignedReceiver != nil {
		return *c.AssignedReceiver
	}
	if c.CollectedBy != nil {
		return *c.CollectedBy
	}
	return 0
}

// CollectedByUser reports whether userID collected this record
func (c *Collection) CollectedByUser(userID uint) bool {
	return c.CollectedBy != nil && *c.CollectedBy == userID
}
