package model

import (
	"time"
)

// Transaction payment transaction model. Effectively one primary
// transaction per order (unique index on order_id).
type Transaction struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement;comment:transaction ID" json:"id"`
	OrderID       uint64     `gorm:"type:bigint unsigned;uniqueIndex;not null;comment:order ID" json:"order_id"`
	Amount        int64      `gorm:"type:bigint;not null;comment:amount (centavos)" json:"amount"`
	Status        string     `gorm:"type:varchar(20);not null;default:pending;index;comment:payment status" json:"status"`
	PaymentMethod *string    `gorm:"type:varchar(30);comment:payment method" json:"payment_method,omitempty"`
	PaidAt        *time.Time `gorm:"type:timestamp;comment:completion time" json:"paid_at,omitempty"`
	CreatedAt     time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:created time" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated time" json:"updated_at"`

	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// TableName set name
func (Transaction) TableName() string {
	return "transactions"
}

// Transaction status const
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Payment method const
const (
	PaymentMethodCash   = "cash"
	PaymentMethodGCash  = "gcash"
	PaymentMethodMaya   = "maya"
	PaymentMethodOnline = "online"
)

// IsPending check transaction is pending
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// IsCompleted check transaction is completed
func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

// IsFailed check transaction is failed
func (t *Transaction) IsFailed() bool {
	return t.Status == TransactionStatusFailed
}

// GetAmountPesos get amount in pesos
func (t *Transaction) GetAmountPesos() float64 {
	return float64(t.Amount) / 100
}
