package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// WalletKey is the cache key of a user's wallet view
func WalletKey(userID uint) string {
	return fmt.Sprintf("wallet:user:%d", userID)
}

// HistoryKey is the cache key of one page of a user's wallet history
func HistoryKey(userID uint, page, pageSize int) string {
	return fmt.Sprintf("txhistory:user:%d:page:%d:size:%d", userID, page, pageSize)
}

// GetCache retrieves a value from Redis and unmarshals it into dest. A nil
// client behaves like an empty cache.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil // Nothing to do
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// usersKeyPrefix prefixes cached admin user listings, which embed wallets
const usersKeyPrefix = "admin:users:"

// UsersKey is the cache key of one page of the admin user listing
func UsersKey(page, pageSize int) string {
	return fmt.Sprintf("%spage=%d:size=%d", usersKeyPrefix, page, pageSize)
}

// walletPatterns lists the key patterns that hold a copy of a user's wallet
// besides WalletKey
func walletPatterns(userID uint) []string {
	return []string{
		fmt.Sprintf("txhistory:user:%d:*", userID), // All history pages
		usersKeyPrefix + "*",                       // Admin listings embed every wallet
	}
}

// InvalidateWallet drops every cached view that embeds the wallet of a user
func InvalidateWallet(ctx context.Context, rdb *redis.Client, userID uint) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	keys := []string{WalletKey(userID)} // Wallet view
	for _, pattern := range walletPatterns(userID) {
		iter := rdb.Scan(ctx, 0, pattern, 100).Iterator() // Walk matching keys
		for iter.Next(ctx) {
			keys = append(keys, iter.Val()) // Collect key
		}
		if err := iter.Err(); err != nil {
			return err // Scan failed
		}
	}
	return DeleteCache(ctx, rdb, keys...)
}
