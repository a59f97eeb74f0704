package repository

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"farm2go/internal/model"
	"farm2go/pkg/utils"
)

// OrderRepository order repository interface
type OrderRepository interface {
	// Create order
	Create(ctx context.Context, order *model.Order) error

	// Get order by ID (with buyer, farmer, product)
	GetByID(ctx context.Context, id uint64) (*model.Order, error)

	// Get order by purchase code
	GetByPurchaseCode(ctx context.Context, code string) (*model.Order, error)

	// Check whether a purchase code is already taken
	CodeExists(ctx context.Context, code string) (bool, error)

	// Update order status
	UpdateStatus(ctx context.Context, id uint64, status string) error

	// Update order status and notes in one statement
	UpdateStatusAndNotes(ctx context.Context, id uint64, status string, notes *string) error

	// Update order notes only
	UpdateNotes(ctx context.Context, id uint64, notes *string) error

	// Delete order (compensating removal of a failed placement)
	Delete(ctx context.Context, id uint64) error

	// List a buyer's orders
	ListBuyerOrders(ctx context.Context, buyerID uint64, page, pageSize int) ([]*model.Order, int64, error)

	// List a farmer's incoming orders
	ListFarmerOrders(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Order, int64, error)
}

// orderRepository order repository implementation
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates an order
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID gets an order by ID
func (r *orderRepository) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Farmer").
		Preload("Product").
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByPurchaseCode gets an order by purchase code
func (r *orderRepository) GetByPurchaseCode(ctx context.Context, code string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Farmer").
		Preload("Product").
		Where("purchase_code = ?", code).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// CodeExists checks whether a purchase code is already taken
func (r *orderRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("purchase_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatus updates the order status. A store-side rejection of the
// status value surfaces as ErrConstraintViolation so callers can fall
// back to the degraded notes representation.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		if isValueRejected(result.Error) {
			return utils.WrapError(result.Error, utils.CodeConstraintViolation, "store rejected status value")
		}
		return result.Error
	}

	if result.RowsAffected == 0 {
		return utils.ErrOrderNotFound
	}
	return nil
}

// UpdateStatusAndNotes updates status and notes in one statement
func (r *orderRepository) UpdateStatusAndNotes(ctx context.Context, id uint64, status string, notes *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": status,
			"notes":  notes,
		})

	if result.Error != nil {
		if isValueRejected(result.Error) {
			return utils.WrapError(result.Error, utils.CodeConstraintViolation, "store rejected status value")
		}
		return result.Error
	}

	if result.RowsAffected == 0 {
		return utils.ErrOrderNotFound
	}
	return nil
}

// UpdateNotes updates the order notes only
func (r *orderRepository) UpdateNotes(ctx context.Context, id uint64, notes *string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("notes", notes)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrOrderNotFound
	}
	return nil
}

// Delete removes an order row. Used only to compensate a placement
// whose later steps failed.
func (r *orderRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&model.Order{}, id).Error
}

// ListBuyerOrders lists a buyer's orders
func (r *orderRepository) ListBuyerOrders(ctx context.Context, buyerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return r.listOrders(ctx, "buyer_id = ?", buyerID, page, pageSize)
}

// ListFarmerOrders lists a farmer's incoming orders
func (r *orderRepository) ListFarmerOrders(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return r.listOrders(ctx, "farmer_id = ?", farmerID, page, pageSize)
}

func (r *orderRepository) listOrders(ctx context.Context, cond string, id uint64, page, pageSize int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where(cond, id)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Preload("Product").
		Find(&orders).Error

	return orders, total, err
}

// isValueRejected reports whether err is the store refusing a column
// value: a violated CHECK constraint or strict-mode truncation.
func isValueRejected(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	// 3819: check constraint violated, 1265: data truncated,
	// 1366: incorrect value for column
	switch mysqlErr.Number {
	case 3819, 1265, 1366:
		return true
	}
	return false
}
