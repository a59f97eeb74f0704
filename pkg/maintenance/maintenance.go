package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusKey = "maintenance:status"
	noticeKey = "maintenance:notice"
)

// Notice is what callers see while the marketplace is gated.
type Notice struct {
	Message     string `json:"message"`
	RetryAfter  int    `json:"retry_after,omitempty"` // seconds, advisory
	AllowReads  bool   `json:"allow_reads"`           // browsing stays up, mutations are gated
	ActivatedBy uint64 `json:"activated_by,omitempty"`
}

// Manager gates order placement during maintenance windows. The flag
// lives in Redis so every instance sees the same state.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a maintenance manager
func NewManager(client *redis.Client) *Manager {
	return &Manager{redis: client}
}

// IsActive reports whether a maintenance window is in effect. Errors
// read as not active; an unreachable Redis must not take checkout down.
func (m *Manager) IsActive(ctx context.Context) bool {
	val, err := m.redis.Get(ctx, statusKey).Result()
	if err != nil {
		return false
	}
	return val == "1"
}

// GetNotice returns the active notice, or a generic one when the
// stored notice is missing or unreadable.
func (m *Manager) GetNotice(ctx context.Context) *Notice {
	fallback := &Notice{
		Message:    "The marketplace is under maintenance, please try again later",
		AllowReads: true,
	}

	data, err := m.redis.Get(ctx, noticeKey).Bytes()
	if err != nil {
		return fallback
	}

	var notice Notice
	if err := json.Unmarshal(data, &notice); err != nil {
		return fallback
	}
	return &notice
}

// Enable opens a maintenance window with no expiry.
func (m *Manager) Enable(ctx context.Context, notice *Notice) error {
	return m.enable(ctx, notice, 0)
}

// EnableFor opens a maintenance window that clears itself after ttl.
func (m *Manager) EnableFor(ctx context.Context, notice *Notice, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("maintenance ttl must be positive")
	}
	return m.enable(ctx, notice, ttl)
}

func (m *Manager) enable(ctx context.Context, notice *Notice, ttl time.Duration) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal maintenance notice: %w", err)
	}

	if err := m.redis.Set(ctx, statusKey, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set maintenance status: %w", err)
	}
	if err := m.redis.Set(ctx, noticeKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set maintenance notice: %w", err)
	}
	return nil
}

// Disable closes the maintenance window.
func (m *Manager) Disable(ctx context.Context) error {
	if err := m.redis.Del(ctx, statusKey, noticeKey).Err(); err != nil {
		return fmt.Errorf("failed to clear maintenance state: %w", err)
	}
	return nil
}
