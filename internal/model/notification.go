package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Notification persisted notification model. Rows are created by the
// fan-out engine and only ever mutated by the recipient (read flag);
// the core never deletes them.
type Notification struct {
	ID          uint64     `gorm:"primaryKey;autoIncrement;comment:notification ID" json:"id"`
	RecipientID uint64     `gorm:"type:bigint unsigned;not null;index;comment:recipient profile ID" json:"recipient_id"`
	SenderID    *uint64    `gorm:"type:bigint unsigned;index;comment:sender profile ID" json:"sender_id,omitempty"`
	Type        string     `gorm:"type:varchar(40);not null;index;comment:event type" json:"type"`
	Title       string     `gorm:"type:varchar(200);not null;comment:title" json:"title"`
	Message     string     `gorm:"type:varchar(1000);not null;comment:message" json:"message"`
	ActionURL   *string    `gorm:"type:varchar(500);comment:action URL" json:"action_url,omitempty"`
	ActionData  JSONMap    `gorm:"type:json;comment:structured action payload" json:"action_data,omitempty"`
	IsRead      bool       `gorm:"type:tinyint(1);not null;default:0;index;comment:read flag" json:"is_read"`
	ReadAt      *time.Time `gorm:"type:timestamp;comment:read time" json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:created time" json:"created_at"`
}

// TableName set name
func (Notification) TableName() string {
	return "notifications"
}

// Notification types. Closed set, stored verbatim: the storage layer
// constrains the column to exactly these values.
const (
	NotificationUserApproved          = "user_approved"
	NotificationUserRejected          = "user_rejected"
	NotificationUserDeleted           = "user_deleted"
	NotificationProductApproved       = "product_approved"
	NotificationProductRejected       = "product_rejected"
	NotificationProductDeleted        = "product_deleted"
	NotificationProductCreated        = "product_created"
	NotificationProductUpdated        = "product_updated"
	NotificationProductLowStock       = "product_low_stock"
	NotificationVerificationApproved  = "verification_approved"
	NotificationVerificationRejected  = "verification_rejected"
	NotificationOrderCreated          = "order_created"
	NotificationOrderConfirmed        = "order_confirmed"
	NotificationOrderProcessing       = "order_processing"
	NotificationOrderReady            = "order_ready"
	NotificationOrderCompleted        = "order_completed"
	NotificationOrderCancelled        = "order_cancelled"
	NotificationOrderStatusChanged    = "order_status_changed"
	NotificationCancellationRequested = "order_cancellation_requested"
	NotificationPaymentReceived       = "payment_received"
	NotificationPaymentPending        = "payment_pending"
	NotificationAdminAction           = "admin_action"
	NotificationSystemMessage         = "system_message"
)

var notificationTypes = map[string]struct{}{
	NotificationUserApproved: {}, NotificationUserRejected: {}, NotificationUserDeleted: {},
	NotificationProductApproved: {}, NotificationProductRejected: {}, NotificationProductDeleted: {},
	NotificationProductCreated: {}, NotificationProductUpdated: {}, NotificationProductLowStock: {},
	NotificationVerificationApproved: {}, NotificationVerificationRejected: {},
	NotificationOrderCreated: {}, NotificationOrderConfirmed: {}, NotificationOrderProcessing: {},
	NotificationOrderReady: {}, NotificationOrderCompleted: {}, NotificationOrderCancelled: {},
	NotificationOrderStatusChanged: {}, NotificationCancellationRequested: {},
	NotificationPaymentReceived: {}, NotificationPaymentPending: {},
	NotificationAdminAction: {}, NotificationSystemMessage: {},
}

// IsValidNotificationType reports whether t belongs to the closed type set.
func IsValidNotificationType(t string) bool {
	_, ok := notificationTypes[t]
	return ok
}

// JSONMap custom json object type
type JSONMap map[string]interface{}

// Value implement driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implement sql.Scanner interface
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	return json.Unmarshal(bytes, m)
}
