package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestBlacklistToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, BlacklistToken(ctx, rdb, "jti-1", time.Now().Add(time.Hour)))

	revoked, err := IsTokenBlacklisted(ctx, rdb, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsTokenBlacklisted(ctx, rdb, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsTokenBlacklisted(ctx, rdb, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistToken_AlreadyExpiredIsNoop(t *testing.T) {
	mr, rdb := newTestRedis(t)

	require.NoError(t, BlacklistToken(context.Background(), rdb, "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(TokenBlacklistKey("old")))
}

func TestWSTicket_SingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	ticket, err := IssueWSTicket(ctx, rdb, "user-7")
	require.NoError(t, err)

	userID, err := RedeemWSTicket(ctx, rdb, ticket)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)

	_, err = RedeemWSTicket(ctx, rdb, ticket)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = rdb.Close()

	rdb, err = NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = NewClient(context.Background(), "redis://%zz")
	assert.Error(t, err)
}
