package notify

import (
	"encoding/json"
	"testing"

	"fin_flow/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRoutesByUser(t *testing.T) {
	hub := NewHub()
	alice := NewClient(1, 4)
	aliceTab := NewClient(1, 4)
	bob := NewClient(2, 4)
	for _, c := range []*Client{alice, aliceTab, bob} {
		hub.Register(c)
	}
	assert.Equal(t, 3, hub.ClientCount())

	hub.BroadcastToUser(1, map[string]string{"hello": "alice"})
	assert.Len(t, alice.Send, 1)
	assert.Len(t, aliceTab.Send, 1)
	assert.Len(t, bob.Send, 0)

	hub.BroadcastAll(map[string]string{"hello": "all"})
	assert.Len(t, alice.Send, 2)
	assert.Len(t, bob.Send, 1)

	bob.Close()
	bob.Close()
	assert.Equal(t, 2, hub.ClientCount())
	hub.BroadcastToUser(2, "gone") // must not panic on a closed queue
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()
	c := NewClient(9, 1)
	hub.Register(c)
	hub.BroadcastToUser(9, "first")
	hub.BroadcastToUser(9, "second")
	require.Len(t, c.Send, 1)
	assert.JSONEq(t, `"first"`, string(<-c.Send))
}

func TestBroadcasterEvents(t *testing.T) {
	hub := NewHub()
	c := NewClient(5, 4)
	hub.Register(c)
	b := NewBroadcaster(hub, nil)

	w := domain.Wallet{UserID: 5, CashBalance: decimal.RequireFromString("12.5")}
	w.Recalculate()
	b.BalanceChanged(5, w)
	b.RecordChanged(domain.EntityTransaction, 3, domain.StatusCompleted)

	var balance BalanceEvent
	require.NoError(t, json.Unmarshal(<-c.Send, &balance))
	assert.Equal(t, "balance", balance.Type)
	assert.True(t, balance.Wallet.TotalBalance.Equal(decimal.RequireFromString("12.5")))

	var record RecordEvent
	require.NoError(t, json.Unmarshal(<-c.Send, &record))
	assert.Equal(t, RecordEvent{Type: "record", Entity: domain.EntityTransaction, ID: 3, Status: domain.StatusCompleted}, record)
}
