package product

import (
	"context"

	"farm2go/internal/model"
	"farm2go/internal/repository"
	"farm2go/internal/service/notify"
	"farm2go/pkg/log"
	"farm2go/pkg/utils"
)

// CreateProductRequest product creation input
type CreateProductRequest struct {
	Name              string  `json:"name" binding:"required,max=200"`
	Description       *string `json:"description,omitempty"`
	Category          *string `json:"category,omitempty" binding:"omitempty,max=50"`
	Unit              string  `json:"unit" binding:"required,max=20"`
	Price             int64   `json:"price" binding:"required,gt=0"`
	QuantityAvailable int     `json:"quantity_available" binding:"gte=0"`
	LowStockThreshold int     `json:"low_stock_threshold" binding:"gte=0"`
}

// UpdateProductRequest product update input. Nil fields stay untouched.
type UpdateProductRequest struct {
	Name              *string `json:"name,omitempty" binding:"omitempty,max=200"`
	Description       *string `json:"description,omitempty"`
	Category          *string `json:"category,omitempty" binding:"omitempty,max=50"`
	Unit              *string `json:"unit,omitempty" binding:"omitempty,max=20"`
	Price             *int64  `json:"price,omitempty" binding:"omitempty,gt=0"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty" binding:"omitempty,gte=0"`
}

// ProductService product catalog interface
type ProductService interface {
	// Create a product listing; it waits for admin approval
	CreateProduct(ctx context.Context, farmerID uint64, req *CreateProductRequest) (*model.Product, error)

	// Update a farmer's own product
	UpdateProduct(ctx context.Context, farmerID, productID uint64, req *UpdateProductRequest) (*model.Product, error)

	// Remove a farmer's own product
	DeleteProduct(ctx context.Context, farmerID, productID uint64) error

	// Add stock back to a product
	Restock(ctx context.Context, farmerID, productID uint64, quantity int) (*model.Product, error)

	// Get a product by ID
	GetProduct(ctx context.Context, id uint64) (*model.Product, error)

	// List products, optionally filtered by approval status
	ListProducts(ctx context.Context, page, pageSize int, approvalStatus string) ([]*model.Product, int64, error)

	// List a farmer's own products
	ListByFarmer(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Product, int64, error)

	// List approved products at or below their low stock threshold
	ListLowStock(ctx context.Context, farmerID uint64) ([]*model.Product, error)
}

// productService product catalog implementation
type productService struct {
	productRepo repository.ProductRepository
	notifier    notify.NotifyService
}

// NewProductService creates a product service
func NewProductService(productRepo repository.ProductRepository, notifier notify.NotifyService) ProductService {
	return &productService{
		productRepo: productRepo,
		notifier:    notifier,
	}
}

// CreateProduct creates a pending product listing and tells the
// barangay's admins a review is waiting.
func (s *productService) CreateProduct(ctx context.Context, farmerID uint64, req *CreateProductRequest) (*model.Product, error) {
	product := &model.Product{
		FarmerID:          farmerID,
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Unit:              req.Unit,
		Price:             req.Price,
		QuantityAvailable: req.QuantityAvailable,
		LowStockThreshold: req.LowStockThreshold,
		ApprovalStatus:    model.ProductStatusPending,
	}
	if product.LowStockThreshold == 0 {
		product.LowStockThreshold = 5
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyProductEvent(ctx, model.NotificationProductCreated, product, farmerID); err != nil {
		log.Warnf("Product %d created but admin notification failed: %v", product.ID, err)
	}

	log.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"farmer_id":  farmerID,
	}).Info("Product listed, awaiting review")

	return product, nil
}

// UpdateProduct updates a farmer's own product
func (s *productService) UpdateProduct(ctx context.Context, farmerID, productID uint64, req *UpdateProductRequest) (*model.Product, error) {
	product, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Category != nil {
		product.Category = req.Category
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyProductEvent(ctx, model.NotificationProductUpdated, product, farmerID); err != nil {
		log.Warnf("Product %d updated but admin notification failed: %v", productID, err)
	}

	return product, nil
}

// DeleteProduct removes a farmer's own product
func (s *productService) DeleteProduct(ctx context.Context, farmerID, productID uint64) error {
	product, err := s.ownedProduct(ctx, farmerID, productID)
	if err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return err
	}

	if err := s.notifier.NotifyProductEvent(ctx, model.NotificationProductDeleted, product, farmerID); err != nil {
		log.Warnf("Product %d removed but admin notification failed: %v", productID, err)
	}

	log.Infof("Product %d removed by farmer %d", productID, farmerID)
	return nil
}

// Restock adds quantity back to a product's shelf.
func (s *productService) Restock(ctx context.Context, farmerID, productID uint64, quantity int) (*model.Product, error) {
	if quantity <= 0 {
		return nil, utils.ErrInvalidParam
	}

	if _, err := s.ownedProduct(ctx, farmerID, productID); err != nil {
		return nil, err
	}

	if err := s.productRepo.ReleaseStock(ctx, productID, quantity); err != nil {
		return nil, err
	}

	// Re-read rather than add locally; concurrent reservations may have
	// moved the count since the ownership check.
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"product_id": productID,
		"farmer_id":  farmerID,
		"added":      quantity,
	}).Info("Product restocked")

	return product, nil
}

// GetProduct gets a product by ID
func (s *productService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// ListProducts lists products filtered by approval status
func (s *productService) ListProducts(ctx context.Context, page, pageSize int, approvalStatus string) ([]*model.Product, int64, error) {
	return s.productRepo.List(ctx, page, pageSize, approvalStatus)
}

// ListByFarmer lists a farmer's own products
func (s *productService) ListByFarmer(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Product, int64, error) {
	return s.productRepo.ListByFarmer(ctx, farmerID, page, pageSize)
}

// ListLowStock lists approved products running low
func (s *productService) ListLowStock(ctx context.Context, farmerID uint64) ([]*model.Product, error) {
	return s.productRepo.ListLowStock(ctx, farmerID)
}

// ownedProduct loads a product and verifies ownership. Other farmers'
// products look like they do not exist.
func (s *productService) ownedProduct(ctx context.Context, farmerID, productID uint64) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.FarmerID != farmerID {
		return nil, utils.ErrProductNotFound
	}
	return product, nil
}
