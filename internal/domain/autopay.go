package domain

// AutoPaySetting redirects the receiver of every new collection in Mode to
// ReceiverID while Enabled.
type AutoPaySetting struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	Mode       Mode  `gorm:"size:8;uniqueIndex;not null" json:"mode"`
	ReceiverID uint  `gorm:"not null" json:"receiver_id"`
	Enabled    bool  `gorm:"not null" json:"enabled"`
	UpdatedBy  uint  `json:"updated_by"`
	UpdatedAt  int64 `gorm:"autoUpdateTime:milli" json:"updated_at"`
}
