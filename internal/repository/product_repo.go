package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"farm2go/internal/model"
	"farm2go/pkg/utils"
)

// ProductRepository product repository interface
type ProductRepository interface {
	// Create product
	Create(ctx context.Context, product *model.Product) error

	// Get product by ID
	GetByID(ctx context.Context, id uint64) (*model.Product, error)

	// Update product
	Update(ctx context.Context, product *model.Product) error

	// Reserve stock (atomic conditional decrement)
	ReserveStock(ctx context.Context, id uint64, quantity int) error

	// Release stock (compensating increment)
	ReleaseStock(ctx context.Context, id uint64, quantity int) error

	// Update approval status
	UpdateApprovalStatus(ctx context.Context, id uint64, status string) error

	// List products
	List(ctx context.Context, page, pageSize int, approvalStatus string) ([]*model.Product, int64, error)

	// List products of a farmer
	ListByFarmer(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Product, int64, error)

	// List approved products at or below their low stock threshold
	ListLowStock(ctx context.Context, farmerID uint64) ([]*model.Product, error)

	// Delete product
	Delete(ctx context.Context, id uint64) error
}

// productRepository product repository implementation
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a product
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID gets a product by ID
func (r *productRepository) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Update updates a product
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// ReserveStock decrements available quantity only when enough remains.
// The conditional UPDATE is the single serialization point for
// concurrent orders on the same product: losers see zero rows affected.
func (r *productRepository) ReserveStock(ctx context.Context, id uint64, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND quantity_available >= ?", id, quantity).
		Update("quantity_available", gorm.Expr("quantity_available - ?", quantity))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return utils.ErrInsufficientStock
	}

	return nil
}

// ReleaseStock returns previously reserved quantity to the product
func (r *productRepository) ReleaseStock(ctx context.Context, id uint64, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("quantity_available", gorm.Expr("quantity_available + ?", quantity)).Error
}

// UpdateApprovalStatus updates the moderation status
func (r *productRepository) UpdateApprovalStatus(ctx context.Context, id uint64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("approval_status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

// List lists products, optionally filtered by approval status
func (r *productRepository) List(ctx context.Context, page, pageSize int, approvalStatus string) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).Model(&model.Product{})

	if approvalStatus != "" {
		db = db.Where("approval_status = ?", approvalStatus)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&products).Error

	return products, total, err
}

// ListByFarmer lists a farmer's products
func (r *productRepository) ListByFarmer(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("farmer_id = ?", farmerID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&products).Error

	return products, total, err
}

// ListLowStock lists approved products at or below their threshold
func (r *productRepository) ListLowStock(ctx context.Context, farmerID uint64) ([]*model.Product, error) {
	var products []*model.Product

	db := r.db.WithContext(ctx).
		Where("approval_status = ?", model.ProductStatusApproved).
		Where("quantity_available <= low_stock_threshold")

	if farmerID > 0 {
		db = db.Where("farmer_id = ?", farmerID)
	}

	err := db.Find(&products).Error
	return products, err
}

// Delete deletes a product
func (r *productRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, id).Error
}
