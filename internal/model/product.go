package model

import (
	"time"
)

// Product product model
type Product struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement;comment:product ID" json:"id"`
	FarmerID          uint64    `gorm:"type:bigint unsigned;not null;index;comment:owning farmer ID" json:"farmer_id"`
	Name              string    `gorm:"type:varchar(200);not null;comment:product name" json:"name"`
	Description       *string   `gorm:"type:text;comment:product description" json:"description,omitempty"`
	Category          *string   `gorm:"type:varchar(50);index;comment:category" json:"category,omitempty"`
	Unit              string    `gorm:"type:varchar(20);not null;default:kg;comment:sale unit" json:"unit"`
	Price             int64     `gorm:"type:bigint;not null;comment:unit price (centavos)" json:"price"`
	QuantityAvailable int       `gorm:"type:int;not null;default:0;comment:available quantity" json:"quantity_available"`
	LowStockThreshold int       `gorm:"type:int;not null;default:5;comment:low stock alert threshold" json:"low_stock_threshold"`
	ApprovalStatus    string    `gorm:"type:varchar(20);not null;default:pending;index;comment:approval status" json:"approval_status"`
	CreatedAt         time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:created time" json:"created_at"`
	UpdatedAt         time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated time" json:"updated_at"`

	Farmer *Profile `gorm:"foreignKey:FarmerID" json:"farmer,omitempty"`
}

// TableName set name
func (Product) TableName() string {
	return "products"
}

// Product approval status
const (
	ProductStatusPending  = "pending"
	ProductStatusApproved = "approved"
	ProductStatusRejected = "rejected"
)

// IsApproved check if product is approved for sale
func (p *Product) IsApproved() bool {
	return p.ApprovalStatus == ProductStatusApproved
}

// HasStock check if product has any stock
func (p *Product) HasStock() bool {
	return p.QuantityAvailable > 0
}

// IsLowStock check if remaining stock is at or below the alert threshold
func (p *Product) IsLowStock() bool {
	return p.QuantityAvailable <= p.LowStockThreshold
}

// GetPricePesos get unit price in pesos
func (p *Product) GetPricePesos() float64 {
	return float64(p.Price) / 100
}
