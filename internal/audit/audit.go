// Package audit persists the trail of successful state transitions.
package audit

import (
	"context"
	"fmt"

	"fin_flow/internal/domain"

	"gorm.io/gorm"
)

type sourceIPKey struct{}

// WithSourceIP stores the caller's address for entries recorded under ctx
func WithSourceIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, sourceIPKey{}, ip)
}

// SourceIP returns the address stored by WithSourceIP, or ""
func SourceIP(ctx context.Context) string {
	ip, _ := ctx.Value(sourceIPKey{}).(string)
	return ip
}

// Logger writes audit entries to the audit_logs table
type Logger struct {
	db *gorm.DB
}

// NewLogger creates a Logger over db
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Record persists one entry. The source IP is taken from ctx when the entry
// does not carry one.
func (l *Logger) Record(ctx context.Context, entry domain.AuditLog) error {
	if entry.SourceIP == "" {
		entry.SourceIP = SourceIP(ctx)
	}
	if err := l.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit entry for %s %d: %w", entry.EntityType, entry.EntityID, err)
	}
	return nil
}

// List returns the trail of one record, oldest first
func (l *Logger) List(ctx context.Context, entity domain.Entity, id uint) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := l.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entity, id).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list audit entries for %s %d: %w", entity, id, err)
	}
	return out, nil
}
