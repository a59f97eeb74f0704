package model

import (
	"strings"
	"time"
)

// Order order model
type Order struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement;comment:order ID" json:"id"`
	PurchaseCode    string    `gorm:"type:varchar(16);uniqueIndex;not null;comment:purchase code" json:"purchase_code"`
	BuyerID         uint64    `gorm:"type:bigint unsigned;not null;index;comment:buyer ID" json:"buyer_id"`
	FarmerID        uint64    `gorm:"type:bigint unsigned;not null;index;comment:farmer ID" json:"farmer_id"`
	ProductID       uint64    `gorm:"type:bigint unsigned;not null;index;comment:product ID" json:"product_id"`
	Quantity        int       `gorm:"type:int;not null;comment:ordered quantity" json:"quantity"`
	TotalPrice      int64     `gorm:"type:bigint;not null;comment:total price (centavos), snapshot at creation" json:"total_price"`
	Status          string    `gorm:"type:varchar(30);not null;default:pending;index;comment:order status" json:"status"`
	DeliveryAddress string    `gorm:"type:varchar(500);not null;comment:delivery address" json:"delivery_address"`
	Notes           *string   `gorm:"type:varchar(1000);comment:notes" json:"notes,omitempty"`
	CreatedAt       time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:created time" json:"created_at"`
	UpdatedAt       time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated time" json:"updated_at"`

	Buyer   *Profile `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Farmer  *Profile `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName set name
func (Order) TableName() string {
	return "orders"
}

// Order status const
const (
	OrderStatusPending               = "pending"
	OrderStatusConfirmed             = "confirmed"
	OrderStatusProcessing            = "processing"
	OrderStatusReady                 = "ready"
	OrderStatusDelivered             = "delivered"
	OrderStatusCancellationRequested = "cancellation_requested"
	OrderStatusCancelled             = "cancelled"
)

// CancellationRequestedSentinel marks a cancellation request inside the
// notes field when the store rejects the real status value.
const CancellationRequestedSentinel = "[CANCELLATION_REQUESTED]"

// orderTransitions lists the legal status transitions. Payment gating is
// enforced by the order service on top of this table.
var orderTransitions = map[string][]string{
	OrderStatusPending:               {OrderStatusConfirmed, OrderStatusCancellationRequested, OrderStatusCancelled},
	OrderStatusConfirmed:             {OrderStatusProcessing, OrderStatusCancellationRequested, OrderStatusCancelled},
	OrderStatusProcessing:            {OrderStatusReady, OrderStatusCancellationRequested, OrderStatusCancelled},
	OrderStatusReady:                 {OrderStatusDelivered, OrderStatusCancellationRequested, OrderStatusCancelled},
	OrderStatusCancellationRequested: {OrderStatusCancelled, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusReady},
	OrderStatusDelivered:             {},
	OrderStatusCancelled:             {},
}

// CanTransition reports whether from → to is a legal order transition.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidOrderStatus reports whether s is a known order status value.
func IsValidOrderStatus(s string) bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminalStatus reports whether s is a terminal order status.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// EffectiveStatus canonicalizes the order status. A pending order whose
// notes carry the cancellation-requested sentinel is treated as
// cancellation_requested: the sentinel is the degraded representation
// written when the store rejects the real status value.
func (o *Order) EffectiveStatus() string {
	if o.Status == OrderStatusPending && o.Notes != nil &&
		strings.Contains(*o.Notes, CancellationRequestedSentinel) {
		return OrderStatusCancellationRequested
	}
	return o.Status
}

// IsPending check order is pending
func (o *Order) IsPending() bool {
	return o.EffectiveStatus() == OrderStatusPending
}

// IsCancelled check order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// IsDelivered check order is delivered
func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

// IsTerminal check order reached a terminal status
func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.Status)
}

// CancellationRequested check a buyer cancellation request is recorded,
// in either physical representation.
func (o *Order) CancellationRequested() bool {
	return o.EffectiveStatus() == OrderStatusCancellationRequested
}

// GetTotalPricePesos get total price in pesos
func (o *Order) GetTotalPricePesos() float64 {
	return float64(o.TotalPrice) / 100
}
