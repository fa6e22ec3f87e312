package audit

import (
	"context"
	"testing"

	"fin_flow/internal/dbtest"
	"fin_flow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	db := dbtest.New(t)
	l := NewLogger(db)
	ctx := WithSourceIP(context.Background(), "192.0.2.1")

	require.NoError(t, l.Record(ctx, domain.AuditLog{ActorID: 1, Action: "Approved collection", ActionType: "approve", EntityType: domain.EntityCollection, EntityID: 7}))
	require.NoError(t, l.Record(ctx, domain.AuditLog{ActorID: 1, Action: "Flagged collection", ActionType: "flag", EntityType: domain.EntityCollection, EntityID: 7, SourceIP: "198.51.100.2"}))
	require.NoError(t, l.Record(ctx, domain.AuditLog{ActorID: 2, Action: "Approved expense", ActionType: "approve", EntityType: domain.EntityExpense, EntityID: 7}))

	entries, err := l.List(ctx, domain.EntityCollection, 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "approve", entries[0].ActionType)
	assert.Equal(t, "192.0.2.1", entries[0].SourceIP)
	assert.Equal(t, "198.51.100.2", entries[1].SourceIP)
	assert.NotZero(t, entries[0].CreatedAt)
}

func TestSourceIPDefaultsToEmpty(t *testing.T) {
	assert.Equal(t, "", SourceIP(context.Background()))
}
