package notify

import (
	"context"
	"time"

	"fin_flow/internal/domain"
	"fin_flow/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// BalanceEvent is pushed to a user whose wallet changed
type BalanceEvent struct {
	Type   string        `json:"type"`
	UserID uint          `json:"user_id"`
	Wallet domain.Wallet `json:"wallet"`
}

// RecordEvent is pushed to everyone when a record changes status
type RecordEvent struct {
	Type   string        `json:"type"`
	Entity domain.Entity `json:"entity"`
	ID     uint          `json:"id"`
	Status domain.Status `json:"status"`
}

// Broadcaster implements the approval notifier on top of a Hub. When a Redis
// client is configured it also evicts the cached wallet views of the user.
type Broadcaster struct {
	hub     *Hub
	rdb     *redis.Client
	timeout time.Duration
}

// NewBroadcaster creates a Broadcaster; rdb may be nil
func NewBroadcaster(hub *Hub, rdb *redis.Client) *Broadcaster {
	return &Broadcaster{hub: hub, rdb: rdb, timeout: 2 * time.Second}
}

// BalanceChanged evicts the user's cached wallet and pushes the new balances
func (b *Broadcaster) BalanceChanged(userID uint, wallet domain.Wallet) {
	if b.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if err := utils.InvalidateWallet(ctx, b.rdb, userID); err != nil {
			logrus.WithField("user_id", userID).WithError(err).Warn("Failed to invalidate wallet cache")
		}
	}
	b.hub.BroadcastToUser(userID, BalanceEvent{Type: "balance", UserID: userID, Wallet: wallet})
}

// RecordChanged pushes the new status of a record to every client
func (b *Broadcaster) RecordChanged(entity domain.Entity, id uint, status domain.Status) {
	b.hub.BroadcastAll(RecordEvent{Type: "record", Entity: entity, ID: id, Status: status})
}
