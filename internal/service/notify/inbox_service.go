package notify

import (
	"context"

	"farm2go/internal/model"
	"farm2go/internal/redis"
	"farm2go/internal/repository"
	"farm2go/pkg/log"
)

// InboxService is the read side of notifications: listing, read flags
// and the cached unread badge counter.
type InboxService interface {
	// List a recipient's notifications, newest first
	List(ctx context.Context, recipientID uint64, page, pageSize int, unreadOnly bool) ([]*model.Notification, int64, error)

	// Mark one notification read
	MarkRead(ctx context.Context, recipientID, id uint64) error

	// Mark everything read; returns the number of rows flipped
	MarkAllRead(ctx context.Context, recipientID uint64) (int64, error)

	// Unread badge count, served from cache when warm
	UnreadCount(ctx context.Context, recipientID uint64) (int64, error)
}

// inboxService notification read-side implementation
type inboxService struct {
	notificationRepo repository.NotificationRepository
}

// NewInboxService creates the notification read service
func NewInboxService(notificationRepo repository.NotificationRepository) InboxService {
	return &inboxService{notificationRepo: notificationRepo}
}

// List lists a recipient's notifications
func (s *inboxService) List(ctx context.Context, recipientID uint64, page, pageSize int, unreadOnly bool) ([]*model.Notification, int64, error) {
	return s.notificationRepo.ListByRecipient(ctx, recipientID, page, pageSize, unreadOnly)
}

// MarkRead marks one notification read and lowers the cached badge.
func (s *inboxService) MarkRead(ctx context.Context, recipientID, id uint64) error {
	if err := s.notificationRepo.MarkRead(ctx, recipientID, id); err != nil {
		return err
	}

	if _, err := redis.DecrUnreadCount(ctx, recipientID, 1); err != nil {
		log.Debugf("unread counter decrement skipped: %v", err)
	}
	return nil
}

// MarkAllRead marks everything read and resets the cached badge.
func (s *inboxService) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	flipped, err := s.notificationRepo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	if err := redis.SetUnreadCount(ctx, recipientID, 0); err != nil {
		log.Debugf("unread counter reset skipped: %v", err)
	}
	return flipped, nil
}

// UnreadCount returns the badge count, reading through the cache.
func (s *inboxService) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	if count, hit, err := redis.GetUnreadCount(ctx, recipientID); err == nil && hit {
		return count, nil
	}

	count, err := s.notificationRepo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}

	if err := redis.SetUnreadCount(ctx, recipientID, count); err != nil {
		log.Debugf("unread counter warmup skipped: %v", err)
	}
	return count, nil
}
