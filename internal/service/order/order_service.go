package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"farm2go/internal/config"
	"farm2go/internal/model"
	"farm2go/internal/repository"
	"farm2go/internal/service/notify"
	"farm2go/pkg/lock"
	"farm2go/pkg/log"
	"farm2go/pkg/purchasecode"
	"farm2go/pkg/utils"
)

// maxCodeAttempts draws before giving up on a unique purchase code
const maxCodeAttempts = 5

// PlaceOrderRequest order placement input
type PlaceOrderRequest struct {
	ProductID       uint64  `json:"product_id" binding:"required"`
	Quantity        int     `json:"quantity" binding:"required,gt=0"`
	DeliveryAddress string  `json:"delivery_address" binding:"required,max=500"`
	Notes           *string `json:"notes,omitempty" binding:"omitempty,max=1000"`
}

// OrderService order orchestration interface
type OrderService interface {
	// Place an order: reserve stock, mint a purchase code, persist,
	// open the payment ledger entry, notify the farmer
	PlaceOrder(ctx context.Context, buyerID uint64, req *PlaceOrderRequest) (*model.Order, error)

	// Get order by ID
	GetOrder(ctx context.Context, id uint64) (*model.Order, error)

	// Get order by purchase code
	GetOrderByCode(ctx context.Context, code string) (*model.Order, error)

	// Build the QR payload of an order
	BuildQRPayload(order *model.Order) (purchasecode.QRPayload, error)

	// Advance the order along the fulfillment path
	AdvanceStatus(ctx context.Context, orderID, actorID uint64, target string) (*model.Order, error)

	// Cancel the order and restore reserved stock. Buyers may only
	// back out before fulfillment starts; the order's farmer and
	// admins may cancel from any non-terminal state
	CancelOrder(ctx context.Context, orderID, actorID uint64, actorRole string) (*model.Order, error)

	// Record a buyer's cancellation request
	RequestCancellation(ctx context.Context, orderID, buyerID uint64) (*model.Order, error)

	// Approve or decline a pending cancellation request; only the
	// order's farmer and admins may resolve
	ResolveCancellation(ctx context.Context, orderID, actorID uint64, actorRole string, approve bool, resumeStatus string) (*model.Order, error)

	// List a buyer's orders
	ListBuyerOrders(ctx context.Context, buyerID uint64, page, pageSize int) ([]*model.Order, int64, error)

	// List a farmer's incoming orders
	ListFarmerOrders(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Order, int64, error)
}

// orderService order orchestration implementation
type orderService struct {
	cfg             config.OrdersConfig
	orderRepo       repository.OrderRepository
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	notifier        notify.NotifyService
	codes           *purchasecode.Generator
	redisClient     *redis.Client
}

// NewOrderService creates an order service
func NewOrderService(
	cfg config.OrdersConfig,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	transactionRepo repository.TransactionRepository,
	notifier notify.NotifyService,
	codes *purchasecode.Generator,
	redisClient *redis.Client,
) OrderService {
	return &orderService{
		cfg:             cfg,
		orderRepo:       orderRepo,
		productRepo:     productRepo,
		transactionRepo: transactionRepo,
		notifier:        notifier,
		codes:           codes,
		redisClient:     redisClient,
	}
}

// PlaceOrder places an order. Stock is reserved first through the
// conditional decrement; every later failure compensates by releasing
// the reservation, so stock is conserved on all paths.
func (s *orderService) PlaceOrder(ctx context.Context, buyerID uint64, req *PlaceOrderRequest) (*model.Order, error) {
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsApproved() {
		return nil, utils.ErrProductNotApproved
	}

	// 1. Reserve stock. Losing the race surfaces as insufficient stock.
	if err := s.productRepo.ReserveStock(ctx, product.ID, req.Quantity); err != nil {
		return nil, err
	}

	// 2. Mint a purchase code the store has not seen.
	code, err := s.uniqueCode(ctx)
	if err != nil {
		s.compensateStock(ctx, product.ID, req.Quantity)
		return nil, err
	}

	order := &model.Order{
		PurchaseCode:    code,
		BuyerID:         buyerID,
		FarmerID:        product.FarmerID,
		ProductID:       product.ID,
		Quantity:        req.Quantity,
		TotalPrice:      product.Price * int64(req.Quantity),
		Status:          model.OrderStatusPending,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	}

	// 3. Persist the order.
	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.compensateStock(ctx, product.ID, req.Quantity)
		return nil, err
	}

	// 4. Open the payment ledger entry.
	txn := &model.Transaction{
		OrderID: order.ID,
		Amount:  order.TotalPrice,
		Status:  model.TransactionStatusPending,
	}
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			log.Errorf("Failed to remove order %d after ledger failure: %v", order.ID, delErr)
		}
		s.compensateStock(ctx, product.ID, req.Quantity)
		return nil, err
	}

	order.Product = product

	// 5. Fan out. Notification trouble never unwinds a placed order.
	if err := s.notifier.NotifyOrderCreated(ctx, order); err != nil {
		log.Warnf("Order %d placed but notification failed: %v", order.ID, err)
	}

	product.QuantityAvailable -= req.Quantity
	if product.IsLowStock() {
		if err := s.notifier.NotifyLowStock(ctx, product); err != nil {
			log.Warnf("Low stock alert for product %d failed: %v", product.ID, err)
		}
	}

	log.WithFields(map[string]interface{}{
		"order_id":      order.ID,
		"purchase_code": order.PurchaseCode,
		"buyer_id":      buyerID,
		"total":         order.TotalPrice,
	}).Info("Order placed")

	return order, nil
}

// GetOrder gets an order by ID
func (s *orderService) GetOrder(ctx context.Context, id uint64) (*model.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// GetOrderByCode gets an order by purchase code
func (s *orderService) GetOrderByCode(ctx context.Context, code string) (*model.Order, error) {
	if !purchasecode.Valid(code) {
		return nil, utils.ErrOrderNotFound
	}
	return s.orderRepo.GetByPurchaseCode(ctx, code)
}

// BuildQRPayload builds the QR payload of an order
func (s *orderService) BuildQRPayload(order *model.Order) (purchasecode.QRPayload, error) {
	if order.Product == nil || order.Farmer == nil {
		return purchasecode.QRPayload{}, fmt.Errorf("order %d not fully loaded", order.ID)
	}

	farm := order.Farmer.Name
	if order.Farmer.FarmName != nil && *order.Farmer.FarmName != "" {
		farm = *order.Farmer.FarmName
	}

	return purchasecode.NewQRPayload(
		order.PurchaseCode,
		farm,
		order.Product.Name,
		order.GetTotalPricePesos(),
		order.CreatedAt,
	), nil
}

// AdvanceStatus moves the order along the fulfillment path. Every
// non-cancelled target is behind the payment gate; cancellation goes
// through CancelOrder instead so stock is restored.
func (s *orderService) AdvanceStatus(ctx context.Context, orderID, actorID uint64, target string) (*model.Order, error) {
	if !model.IsValidOrderStatus(target) {
		return nil, utils.ErrIllegalTransition
	}
	if target == model.OrderStatusCancelled {
		return nil, utils.WrapError(
			fmt.Errorf("order %d: cancellation must restore stock", orderID),
			utils.CodeIllegalTransition, "use the cancellation flow")
	}

	var order *model.Order
	err := s.withOrderLock(ctx, orderID, func() error {
		var err error
		order, err = s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		from := order.EffectiveStatus()
		if !model.CanTransition(from, target) {
			return utils.WrapError(
				fmt.Errorf("%s -> %s", from, target),
				utils.CodeIllegalTransition, "illegal order status transition")
		}

		// The gate holds on every path into fulfillment, including
		// resuming out of cancellation_requested.
		paid, err := s.paymentCompleted(ctx, orderID)
		if err != nil {
			return err
		}
		if !paid {
			return utils.WrapError(
				fmt.Errorf("order %d has no completed payment", orderID),
				utils.CodeIllegalTransition, "payment required before fulfillment")
		}

		// Moving out of the degraded pending+sentinel representation
		// clears the sentinel along with the status write.
		if order.Status == model.OrderStatusPending && from == model.OrderStatusCancellationRequested {
			return s.orderRepo.UpdateStatusAndNotes(ctx, orderID, target, stripSentinel(order.Notes))
		}
		return s.orderRepo.UpdateStatus(ctx, orderID, target)
	})
	if err != nil {
		return nil, err
	}

	order.Status = target
	order.Notes = stripSentinel(order.Notes)
	if err := s.notifier.NotifyOrderStatusChanged(ctx, order, actorID); err != nil {
		log.Warnf("Status change notification for order %d failed: %v", orderID, err)
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"status":   target,
		"actor_id": actorID,
	}).Info("Order status advanced")

	return order, nil
}

// CancelOrder cancels the order, restores reserved stock and fails the
// open payment ledger entry. Buyers may cancel their own order while it
// is still pending or waiting on a cancellation request; the order's
// farmer and admins may cancel from any non-terminal state.
func (s *orderService) CancelOrder(ctx context.Context, orderID, actorID uint64, actorRole string) (*model.Order, error) {
	var order *model.Order
	err := s.withOrderLock(ctx, orderID, func() error {
		var err error
		order, err = s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		isBuyer := order.BuyerID == actorID
		isStaff := order.FarmerID == actorID ||
			actorRole == model.RoleAdmin || actorRole == model.RoleSuperAdmin
		if !isBuyer && !isStaff {
			return utils.ErrOrderNotFound
		}

		from := order.EffectiveStatus()
		if !model.CanTransition(from, model.OrderStatusCancelled) {
			return utils.ErrOrderNotCancellable
		}
		if isBuyer && !isStaff &&
			from != model.OrderStatusPending && from != model.OrderStatusCancellationRequested {
			return utils.ErrOrderNotCancellable
		}

		if err := s.orderRepo.UpdateStatusAndNotes(ctx, orderID, model.OrderStatusCancelled, stripSentinel(order.Notes)); err != nil {
			return err
		}

		// Reserved quantity flows back to the shelf.
		if err := s.productRepo.ReleaseStock(ctx, order.ProductID, order.Quantity); err != nil {
			log.Errorf("Failed to restore stock for cancelled order %d: %v", orderID, err)
		}

		txn, err := s.transactionRepo.GetByOrderID(ctx, orderID)
		if err == nil && txn.IsPending() {
			if err := s.transactionRepo.UpdateStatus(ctx, txn.ID, model.TransactionStatusFailed); err != nil {
				log.Errorf("Failed to close ledger entry for cancelled order %d: %v", orderID, err)
			}
		} else if err != nil && !errors.Is(err, utils.ErrTransactionNotFound) {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = model.OrderStatusCancelled
	order.Notes = stripSentinel(order.Notes)
	if err := s.notifier.NotifyOrderStatusChanged(ctx, order, actorID); err != nil {
		log.Warnf("Cancellation notification for order %d failed: %v", orderID, err)
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"actor_id": actorID,
	}).Info("Order cancelled, stock restored")

	return order, nil
}

// RequestCancellation records a buyer's cancellation request. When the
// store rejects the dedicated status value the request degrades to the
// notes sentinel; readers canonicalize through EffectiveStatus.
func (s *orderService) RequestCancellation(ctx context.Context, orderID, buyerID uint64) (*model.Order, error) {
	var order *model.Order
	var already bool
	err := s.withOrderLock(ctx, orderID, func() error {
		var err error
		order, err = s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		if order.BuyerID != buyerID {
			return utils.ErrOrderNotFound
		}
		if order.CancellationRequested() {
			already = true
			return nil // already recorded, idempotent
		}
		if !model.CanTransition(order.EffectiveStatus(), model.OrderStatusCancellationRequested) {
			return utils.ErrOrderNotCancellable
		}

		err = s.orderRepo.UpdateStatus(ctx, orderID, model.OrderStatusCancellationRequested)
		if err == nil {
			order.Status = model.OrderStatusCancellationRequested
			return nil
		}
		if !errors.Is(err, utils.ErrConstraintViolation) {
			return err
		}

		// Degraded representation: keep status, mark the notes.
		notes := appendSentinel(order.Notes)
		if err := s.orderRepo.UpdateNotes(ctx, orderID, notes); err != nil {
			return err
		}
		order.Notes = notes
		log.Warnf("Order %d cancellation request stored via notes sentinel", orderID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A repeated request records nothing new, so nobody is re-notified.
	if !already {
		if err := s.notifier.NotifyCancellationRequested(ctx, order); err != nil {
			log.Warnf("Cancellation request notification for order %d failed: %v", orderID, err)
		}
	}

	return order, nil
}

// ResolveCancellation approves or declines a pending cancellation
// request. Only the order's farmer and admins may resolve. Approval
// cancels the order; decline resumes fulfillment at resumeStatus.
func (s *orderService) ResolveCancellation(ctx context.Context, orderID, actorID uint64, actorRole string, approve bool, resumeStatus string) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.FarmerID != actorID &&
		actorRole != model.RoleAdmin && actorRole != model.RoleSuperAdmin {
		return nil, utils.ErrOrderNotFound
	}
	if !order.CancellationRequested() {
		return nil, utils.ErrIllegalTransition
	}

	if approve {
		return s.CancelOrder(ctx, orderID, actorID, actorRole)
	}

	// Declining a request on the degraded representation just clears
	// the sentinel, the order was never out of pending.
	if order.Status == model.OrderStatusPending {
		if err := s.orderRepo.UpdateNotes(ctx, orderID, stripSentinel(order.Notes)); err != nil {
			return nil, err
		}
		order.Notes = stripSentinel(order.Notes)
		return order, nil
	}

	if resumeStatus == "" {
		resumeStatus = model.OrderStatusConfirmed
	}
	return s.AdvanceStatus(ctx, orderID, actorID, resumeStatus)
}

// ListBuyerOrders lists a buyer's orders
func (s *orderService) ListBuyerOrders(ctx context.Context, buyerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListBuyerOrders(ctx, buyerID, page, pageSize)
}

// ListFarmerOrders lists a farmer's incoming orders
func (s *orderService) ListFarmerOrders(ctx context.Context, farmerID uint64, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orderRepo.ListFarmerOrders(ctx, farmerID, page, pageSize)
}

// withOrderLock serializes mutations of one order across processes.
func (s *orderService) withOrderLock(ctx context.Context, orderID uint64, fn func() error) error {
	key := fmt.Sprintf("order_lock:%d", orderID)
	l := lock.NewRedisLock(s.redisClient, key, utils.GenerateRandomString(16), s.cfg.LockTTL)

	if err := l.TryLock(ctx, s.cfg.LockRetries, s.cfg.LockRetryWait); err != nil {
		return utils.WrapError(err, utils.CodeRateLimit, "order is being modified, try again")
	}
	defer func() {
		if err := l.Unlock(ctx); err != nil {
			log.Debugf("order lock release: %v", err)
		}
	}()

	return fn()
}

// uniqueCode draws purchase codes until one is unseen by both the
// generator and the store.
func (s *orderService) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.codes.Generate()
		if err != nil {
			return "", err
		}
		exists, err := s.orderRepo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		s.codes.MarkIssued(code)
	}
	return "", fmt.Errorf("failed to mint a unique purchase code after %d attempts", maxCodeAttempts)
}

func (s *orderService) compensateStock(ctx context.Context, productID uint64, quantity int) {
	if err := s.productRepo.ReleaseStock(ctx, productID, quantity); err != nil {
		log.Errorf("Stock compensation failed for product %d (+%d): %v", productID, quantity, err)
	}
}

func (s *orderService) paymentCompleted(ctx context.Context, orderID uint64) (bool, error) {
	txn, err := s.transactionRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, utils.ErrTransactionNotFound) {
			return false, nil
		}
		return false, err
	}
	return txn.IsCompleted(), nil
}

func appendSentinel(notes *string) *string {
	if notes == nil || *notes == "" {
		s := model.CancellationRequestedSentinel
		return &s
	}
	s := *notes + " " + model.CancellationRequestedSentinel
	return &s
}

func stripSentinel(notes *string) *string {
	if notes == nil {
		return nil
	}
	s := strings.TrimSpace(strings.ReplaceAll(*notes, model.CancellationRequestedSentinel, ""))
	if s == "" {
		return nil
	}
	return &s
}
