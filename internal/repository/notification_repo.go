package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"farm2go/internal/model"
)

// ErrNotificationNotFound notification row not found
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository notification repository interface
type NotificationRepository interface {
	// Create notification
	Create(ctx context.Context, n *model.Notification) error

	// Create a batch of notifications in one transaction
	CreateBatch(ctx context.Context, ns []*model.Notification) error

	// Get notification by ID
	GetByID(ctx context.Context, id uint64) (*model.Notification, error)

	// List a recipient's notifications, newest first
	ListByRecipient(ctx context.Context, recipientID uint64, page, pageSize int, unreadOnly bool) ([]*model.Notification, int64, error)

	// List notifications created after a point in time (polling fallback)
	ListSince(ctx context.Context, recipientID uint64, since time.Time, limit int) ([]*model.Notification, error)

	// Mark one notification read
	MarkRead(ctx context.Context, recipientID, id uint64) error

	// Mark all of a recipient's notifications read
	MarkAllRead(ctx context.Context, recipientID uint64) (int64, error)

	// Count unread notifications
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)
}

// notificationRepository notification repository implementation
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create creates a notification
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateBatch creates a batch of notifications in one transaction
func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&ns).Error
	})
}

// GetByID gets a notification by ID
func (r *notificationRepository) GetByID(ctx context.Context, id uint64) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListByRecipient lists a recipient's notifications, newest first
func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uint64, page, pageSize int, unreadOnly bool) ([]*model.Notification, int64, error) {
	var ns []*model.Notification
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ?", recipientID)

	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&ns).Error

	return ns, total, err
}

// ListSince lists notifications created after since, oldest first so
// pollers replay them in arrival order.
func (r *notificationRepository) ListSince(ctx context.Context, recipientID uint64, since time.Time, limit int) ([]*model.Notification, error) {
	var ns []*model.Notification

	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND created_at > ?", recipientID, since).
		Order("created_at ASC").
		Limit(limit).
		Find(&ns).Error

	return ns, err
}

// MarkRead marks one notification read. Scoped to the recipient so a
// user cannot mark someone else's rows.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id uint64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks all of a recipient's notifications read
func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})

	return result.RowsAffected, result.Error
}

// CountUnread counts unread notifications
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
