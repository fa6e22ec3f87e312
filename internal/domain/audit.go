package domain

// AuditLog is one persisted record of a successful state transition
type AuditLog struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ActorID    uint   `gorm:"index" json:"actor_id"`
	Action     string `gorm:"size:255;not null" json:"action"`
	ActionType string `gorm:"size:32;not null" json:"action_type"`
	EntityType Entity `gorm:"size:32;index:idx_audit_entity;not null" json:"entity_type"`
	EntityID   uint   `gorm:"index:idx_audit_entity" json:"entity_id"`
	Before     string `gorm:"type:text" json:"before,omitempty"`
	After      string `gorm:"type:text" json:"after,omitempty"`
	SourceIP   string `gorm:"size:64" json:"source_ip,omitempty"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}
