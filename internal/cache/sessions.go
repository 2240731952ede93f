package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenBlacklistPrefix = "jwt_blacklist:%s"
	wsTicketPrefix       = "ws_ticket:%s"

	// WSTicketTTL is how long a websocket ticket stays redeemable.
	WSTicketTTL = 30 * time.Second
)

// ErrTicketInvalid is returned for unknown, expired or already used tickets.
var ErrTicketInvalid = errors.New("invalid or expired websocket ticket")

func TokenBlacklistKey(jti string) string {
	return fmt.Sprintf(tokenBlacklistPrefix, jti)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(wsTicketPrefix, ticket)
}

// BlacklistToken marks a token id as revoked until it would have expired anyway.
func BlacklistToken(ctx context.Context, rdb *redis.Client, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, TokenBlacklistKey(jti), "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a token id was revoked.
func IsTokenBlacklisted(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	n, err := rdb.Exists(ctx, TokenBlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IssueWSTicket stores a single-use ticket for userID and returns it.
func IssueWSTicket(ctx context.Context, rdb *redis.Client, userID string) (string, error) {
	ticket := uuid.NewString()
	if err := rdb.Set(ctx, WSTicketKey(ticket), userID, WSTicketTTL).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

// RedeemWSTicket consumes a ticket and returns the user it was issued for.
func RedeemWSTicket(ctx context.Context, rdb *redis.Client, ticket string) (string, error) {
	userID, err := rdb.GetDel(ctx, WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTicketInvalid
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
