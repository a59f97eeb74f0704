package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// sliding window rate limit script
	RateLimitScript = `
		local key = KEYS[1]
		local window = tonumber(ARGV[1])
		local limit = tonumber(ARGV[2])
		local current_time = tonumber(ARGV[3])

		redis.call('ZREMRANGEBYSCORE', key, 0, current_time - window)

		local current_count = redis.call('ZCARD', key)

		if current_count < limit then
			redis.call('ZADD', key, current_time, current_time)
			redis.call('EXPIRE', key, window)
			return {0, limit - current_count - 1}
		else
			return {-1, 0}
		end
	`

	// unread counter decrement script, floored at zero
	UnreadDecrScript = `
		local key = KEYS[1]
		local delta = tonumber(ARGV[1])

		local current = redis.call('GET', key)
		if not current then
			return 0
		end

		current = tonumber(current)
		if current <= delta then
			redis.call('SET', key, 0, 'KEEPTTL')
			return 0
		end

		return redis.call('DECRBY', key, delta)
	`
)

// LuaScript manages preloaded server-side scripts
type LuaScript struct {
	client redis.Cmdable

	rateLimitScript  *redis.Script
	unreadDecrScript *redis.Script
}

// NewLuaScript creates a script manager bound to client
func NewLuaScript(client redis.Cmdable) *LuaScript {
	return &LuaScript{
		client:           client,
		rateLimitScript:  redis.NewScript(RateLimitScript),
		unreadDecrScript: redis.NewScript(UnreadDecrScript),
	}
}

// LoadScripts preloads all scripts into the script cache
func (ls *LuaScript) LoadScripts(ctx context.Context) error {
	scripts := []*redis.Script{
		ls.rateLimitScript,
		ls.unreadDecrScript,
	}

	for _, script := range scripts {
		if err := script.Load(ctx, ls.client).Err(); err != nil {
			return fmt.Errorf("failed to load lua script: %w", err)
		}
	}

	return nil
}

// RateLimit runs the sliding window check for key
func (ls *LuaScript) RateLimit(ctx context.Context, key string, window time.Duration, limit int) (bool, int, error) {
	currentTime := time.Now().Unix()
	keys := []string{key}
	args := []interface{}{int(window.Seconds()), limit, currentTime}

	result, err := ls.rateLimitScript.Run(ctx, ls.client, keys, args...).Result()
	if err != nil {
		return false, 0, err
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 2 {
		return false, 0, fmt.Errorf("invalid script result")
	}

	code, _ := resultSlice[0].(int64)
	remaining, _ := resultSlice[1].(int64)

	return code == 0, int(remaining), nil
}

// DecrUnread decrements an unread counter and returns the new value
func (ls *LuaScript) DecrUnread(ctx context.Context, key string, delta int64) (int64, error) {
	result, err := ls.unreadDecrScript.Run(ctx, ls.client, []string{key}, delta).Result()
	if err != nil {
		return 0, err
	}

	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("invalid script result")
	}

	return count, nil
}

// global script manager
var LuaScripts *LuaScript

// InitLuaScripts initializes and preloads the global script manager
func InitLuaScripts(client redis.Cmdable) error {
	LuaScripts = NewLuaScript(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return LuaScripts.LoadScripts(ctx)
}

// CheckRateLimit checks the sliding window limit for key
func CheckRateLimit(ctx context.Context, key string, window time.Duration, limit int) (bool, int, error) {
	if LuaScripts == nil {
		return false, 0, fmt.Errorf("lua scripts not initialized")
	}
	return LuaScripts.RateLimit(ctx, key, window, limit)
}

// unread notification counter cache

const unreadCountTTL = 24 * time.Hour

func unreadKey(userID uint64) string {
	return fmt.Sprintf("unread:%d", userID)
}

// SetUnreadCount writes the cached unread count for a user
func SetUnreadCount(ctx context.Context, userID uint64, count int64) error {
	if Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return Client.Set(ctx, unreadKey(userID), count, unreadCountTTL).Err()
}

// GetUnreadCount reads the cached unread count. A miss returns (0, false).
func GetUnreadCount(ctx context.Context, userID uint64) (int64, bool, error) {
	if Client == nil {
		return 0, false, fmt.Errorf("redis client not initialized")
	}

	result, err := Client.Get(ctx, unreadKey(userID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// IncrUnreadCount bumps the cached unread count
func IncrUnreadCount(ctx context.Context, userID uint64, delta int64) error {
	if Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	key := unreadKey(userID)
	if err := Client.IncrBy(ctx, key, delta).Err(); err != nil {
		return err
	}
	return Client.Expire(ctx, key, unreadCountTTL).Err()
}

// DecrUnreadCount lowers the cached unread count, floored at zero
func DecrUnreadCount(ctx context.Context, userID uint64, delta int64) (int64, error) {
	if LuaScripts == nil {
		return 0, fmt.Errorf("lua scripts not initialized")
	}
	return LuaScripts.DecrUnread(ctx, unreadKey(userID), delta)
}

// InvalidateUnreadCount drops the cached unread count
func InvalidateUnreadCount(ctx context.Context, userID uint64) error {
	if Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return Client.Del(ctx, unreadKey(userID)).Err()
}
