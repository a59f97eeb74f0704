package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/allegro/bigcache/v3"

	"farm2go/internal/config"
	"farm2go/internal/model"
	"farm2go/internal/redis"
	"farm2go/internal/repository"
	"farm2go/pkg/breaker"
	"farm2go/pkg/log"
)

// ErrInvalidType notification type outside the closed set
var ErrInvalidType = errors.New("invalid notification type")

// NotifyService notification fan-out engine. One domain event expands
// into one persisted row per recipient; rows are written first, then
// broadcast on every configured publisher. Each event decides its own
// audience, including whether the actor hears back.
type NotifyService interface {
	// Order placed: the farmer learns about the new order and the
	// buyer gets a confirmation
	NotifyOrderCreated(ctx context.Context, order *model.Order) error

	// Order status moved: the buyer always learns about it, the farmer
	// only when somebody else moved it
	NotifyOrderStatusChanged(ctx context.Context, order *model.Order, actorID uint64) error

	// Buyer asked to cancel: the farmer and the barangay's admins learn
	// about the request
	NotifyCancellationRequested(ctx context.Context, order *model.Order) error

	// Payment completed: both order parties minus the actor learn about it
	NotifyPaymentReceived(ctx context.Context, order *model.Order, txn *model.Transaction, actorID uint64) error

	// Stock at or below threshold after an order
	NotifyLowStock(ctx context.Context, product *model.Product) error

	// Account moderation decision reached the subject
	NotifyUserModeration(ctx context.Context, profile *model.Profile, approved bool, adminID uint64) error

	// Product moderation decision reached the owning farmer
	NotifyProductModeration(ctx context.Context, product *model.Product, approved bool, adminID uint64) error

	// Product lifecycle event fanned out to the barangay's admins
	NotifyProductEvent(ctx context.Context, eventType string, product *model.Product, actorID uint64) error

	// System announcement to every approved profile of a role
	Announce(ctx context.Context, senderID uint64, role, title, message string) error
}

// notifyService notification fan-out implementation
type notifyService struct {
	cfg              config.NotifyConfig
	notificationRepo repository.NotificationRepository
	profileRepo      repository.ProfileRepository
	publishers       []Publisher
	breakers         *breaker.Manager
	adminCache       *bigcache.BigCache
}

// NewNotifyService creates the fan-out engine
func NewNotifyService(
	cfg config.NotifyConfig,
	notificationRepo repository.NotificationRepository,
	profileRepo repository.ProfileRepository,
	breakers *breaker.Manager,
	publishers ...Publisher,
) (NotifyService, error) {
	cache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(cfg.AdminCacheTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create admin cache: %w", err)
	}

	return &notifyService{
		cfg:              cfg,
		notificationRepo: notificationRepo,
		profileRepo:      profileRepo,
		publishers:       publishers,
		breakers:         breakers,
		adminCache:       cache,
	}, nil
}

// Topic returns the broadcast topic of a recipient.
func Topic(prefix string, recipientID uint64) string {
	return prefix + strconv.FormatUint(recipientID, 10)
}

// NotifyOrderCreated notifies the farmer about a new order and sends
// the buyer a placement confirmation.
func (s *notifyService) NotifyOrderCreated(ctx context.Context, order *model.Order) error {
	farmerNote := &model.Notification{
		RecipientID: order.FarmerID,
		SenderID:    &order.BuyerID,
		Type:        model.NotificationOrderCreated,
		Title:       "New Order Received!",
		Message: fmt.Sprintf("You have a new order for %d %s of %s (%s)",
			order.Quantity, productUnit(order), productName(order), order.PurchaseCode),
		ActionURL:  orderURL(order.ID),
		ActionData: orderActionData(order),
	}
	buyerNote := &model.Notification{
		RecipientID: order.BuyerID,
		Type:        model.NotificationOrderCreated,
		Title:       "Order Placed",
		Message: fmt.Sprintf("Your order %s for %d %s of %s has been placed",
			order.PurchaseCode, order.Quantity, productUnit(order), productName(order)),
		ActionURL:  orderURL(order.ID),
		ActionData: orderActionData(order),
	}
	return s.dispatch(ctx, farmerNote, buyerNote)
}

// NotifyOrderStatusChanged notifies the order parties. The buyer hears
// about every move, their own included; the farmer only hears about
// moves made by somebody else.
func (s *notifyService) NotifyOrderStatusChanged(ctx context.Context, order *model.Order, actorID uint64) error {
	typ, title, message := statusChangeTemplate(order)

	recipients := []uint64{order.BuyerID}
	if order.FarmerID != actorID {
		recipients = append(recipients, order.FarmerID)
	}

	var ns []*model.Notification
	for _, recipient := range recipients {
		sender := actorID
		ns = append(ns, &model.Notification{
			RecipientID: recipient,
			SenderID:    &sender,
			Type:        typ,
			Title:       title,
			Message:     message,
			ActionURL:   orderURL(order.ID),
			ActionData:  orderActionData(order),
		})
	}
	return s.dispatch(ctx, ns...)
}

// NotifyCancellationRequested notifies the farmer and the admins of the
// farmer's barangay about a buyer request. An admin-list lookup failure
// never loses the farmer's copy.
func (s *notifyService) NotifyCancellationRequested(ctx context.Context, order *model.Order) error {
	title := "Cancellation Requested"
	message := fmt.Sprintf("The buyer asked to cancel order %s. Approve or decline the request.",
		order.PurchaseCode)

	recipients := []uint64{order.FarmerID}
	if farmer, err := s.profileRepo.GetByID(ctx, order.FarmerID); err != nil {
		log.Warnf("Farmer %d lookup failed, admins not notified of cancellation request: %v",
			order.FarmerID, err)
	} else if adminIDs, err := s.barangayAdmins(ctx, farmer.Barangay); err != nil {
		log.Warnf("Admin lookup for barangay %q failed, admins not notified of cancellation request: %v",
			farmer.Barangay, err)
	} else {
		for _, adminID := range adminIDs {
			if adminID == order.BuyerID || adminID == order.FarmerID {
				continue
			}
			recipients = append(recipients, adminID)
		}
	}

	var ns []*model.Notification
	for _, recipient := range recipients {
		ns = append(ns, &model.Notification{
			RecipientID: recipient,
			SenderID:    &order.BuyerID,
			Type:        model.NotificationCancellationRequested,
			Title:       title,
			Message:     message,
			ActionURL:   orderURL(order.ID),
			ActionData:  orderActionData(order),
		})
	}
	return s.dispatch(ctx, ns...)
}

// NotifyPaymentReceived notifies the order parties about a completed payment
func (s *notifyService) NotifyPaymentReceived(ctx context.Context, order *model.Order, txn *model.Transaction, actorID uint64) error {
	message := fmt.Sprintf("Payment of ₱%.2f for order %s was received",
		txn.GetAmountPesos(), order.PurchaseCode)

	var ns []*model.Notification
	for _, recipient := range []uint64{order.BuyerID, order.FarmerID} {
		if recipient == actorID {
			continue
		}
		sender := actorID
		ns = append(ns, &model.Notification{
			RecipientID: recipient,
			SenderID:    &sender,
			Type:        model.NotificationPaymentReceived,
			Title:       "Payment Received",
			Message:     message,
			ActionURL:   orderURL(order.ID),
			ActionData:  orderActionData(order),
		})
	}
	return s.dispatch(ctx, ns...)
}

// NotifyLowStock warns the farmer about remaining stock
func (s *notifyService) NotifyLowStock(ctx context.Context, product *model.Product) error {
	n := &model.Notification{
		RecipientID: product.FarmerID,
		Type:        model.NotificationProductLowStock,
		Title:       "Low Stock Alert",
		Message: fmt.Sprintf("%s is down to %d %s. Restock soon to keep receiving orders.",
			product.Name, product.QuantityAvailable, product.Unit),
		ActionData: model.JSONMap{"product_id": product.ID},
	}
	return s.dispatch(ctx, n)
}

// NotifyUserModeration notifies the subject of an account decision
func (s *notifyService) NotifyUserModeration(ctx context.Context, profile *model.Profile, approved bool, adminID uint64) error {
	typ := model.NotificationUserApproved
	title := "Account Approved"
	message := "Welcome to Farm2Go! Your account has been approved."
	if !approved {
		typ = model.NotificationUserRejected
		title = "Account Rejected"
		message = "Your account application was not approved. Contact your barangay admin for details."
	}

	n := &model.Notification{
		RecipientID: profile.ID,
		SenderID:    &adminID,
		Type:        typ,
		Title:       title,
		Message:     message,
	}
	return s.dispatch(ctx, n)
}

// NotifyProductModeration notifies the owning farmer of a product decision
func (s *notifyService) NotifyProductModeration(ctx context.Context, product *model.Product, approved bool, adminID uint64) error {
	typ := model.NotificationProductApproved
	title := "Product Approved"
	message := fmt.Sprintf("%s is now live on the marketplace.", product.Name)
	if !approved {
		typ = model.NotificationProductRejected
		title = "Product Rejected"
		message = fmt.Sprintf("%s was not approved for listing.", product.Name)
	}

	n := &model.Notification{
		RecipientID: product.FarmerID,
		SenderID:    &adminID,
		Type:        typ,
		Title:       title,
		Message:     message,
		ActionData:  model.JSONMap{"product_id": product.ID},
	}
	return s.dispatch(ctx, n)
}

// NotifyProductEvent fans a product lifecycle event out to the admins
// of the owning farmer's barangay.
func (s *notifyService) NotifyProductEvent(ctx context.Context, eventType string, product *model.Product, actorID uint64) error {
	if !model.IsValidNotificationType(eventType) {
		return ErrInvalidType
	}

	farmer, err := s.profileRepo.GetByID(ctx, product.FarmerID)
	if err != nil {
		return err
	}

	adminIDs, err := s.barangayAdmins(ctx, farmer.Barangay)
	if err != nil {
		return err
	}

	title, message := productEventTemplate(eventType, product, farmer)

	var ns []*model.Notification
	for _, adminID := range adminIDs {
		if adminID == actorID {
			continue
		}
		sender := actorID
		ns = append(ns, &model.Notification{
			RecipientID: adminID,
			SenderID:    &sender,
			Type:        eventType,
			Title:       title,
			Message:     message,
			ActionData:  model.JSONMap{"product_id": product.ID, "farmer_id": product.FarmerID},
		})
	}
	return s.dispatch(ctx, ns...)
}

// Announce sends a system message to every approved profile of a role
func (s *notifyService) Announce(ctx context.Context, senderID uint64, role, title, message string) error {
	profiles, err := s.profileRepo.ListByRole(ctx, role)
	if err != nil {
		return err
	}

	var ns []*model.Notification
	for _, p := range profiles {
		if p.ID == senderID {
			continue
		}
		sender := senderID
		ns = append(ns, &model.Notification{
			RecipientID: p.ID,
			SenderID:    &sender,
			Type:        model.NotificationSystemMessage,
			Title:       title,
			Message:     message,
		})
	}
	return s.dispatch(ctx, ns...)
}

// dispatch persists the batch, then broadcasts each row on every
// publisher. Persistence failure fails the event; broadcast failure is
// logged and absorbed, the polling fallback will deliver.
func (s *notifyService) dispatch(ctx context.Context, ns ...*model.Notification) error {
	for _, n := range ns {
		if !model.IsValidNotificationType(n.Type) {
			return ErrInvalidType
		}
	}

	if len(ns) == 0 {
		return nil
	}

	if err := s.notificationRepo.CreateBatch(ctx, ns); err != nil {
		return fmt.Errorf("failed to persist notifications: %w", err)
	}

	for _, n := range ns {
		if err := redis.IncrUnreadCount(ctx, n.RecipientID, 1); err != nil {
			log.Debugf("unread counter bump skipped: %v", err)
		}
		s.broadcast(ctx, n)
	}

	return nil
}

func (s *notifyService) broadcast(ctx context.Context, n *model.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		log.Errorf("Failed to serialize notification %d: %v", n.ID, err)
		return
	}

	topic := Topic(s.cfg.TopicPrefix, n.RecipientID)
	for _, pub := range s.publishers {
		pub := pub
		err := s.breakers.Execute(ctx, "notify_"+pub.Name(), func() error {
			return pub.Publish(ctx, topic, payload)
		})
		if err != nil {
			log.WithFields(map[string]interface{}{
				"channel":      pub.Name(),
				"notification": n.ID,
				"recipient":    n.RecipientID,
				"error":        err.Error(),
			}).Warn("Notification broadcast failed, polling will deliver")
		}
	}
}

// barangayAdmins resolves the admin recipients of a barangay, through
// the short-lived cache. Super admins are always included.
func (s *notifyService) barangayAdmins(ctx context.Context, barangay string) ([]uint64, error) {
	cacheKey := "admins:" + barangay

	if data, err := s.adminCache.Get(cacheKey); err == nil {
		var ids []uint64
		if err := json.Unmarshal(data, &ids); err == nil {
			return ids, nil
		}
	}

	admins, err := s.profileRepo.ListAdminsByBarangay(ctx, barangay, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}

	if data, err := json.Marshal(ids); err == nil {
		if err := s.adminCache.Set(cacheKey, data); err != nil {
			log.Debugf("admin cache set failed: %v", err)
		}
	}

	return ids, nil
}

// templates

func statusChangeTemplate(order *model.Order) (typ, title, message string) {
	code := order.PurchaseCode
	switch order.EffectiveStatus() {
	case model.OrderStatusConfirmed:
		return model.NotificationOrderConfirmed, "Order Confirmed",
			fmt.Sprintf("Order %s has been confirmed by the farmer", code)
	case model.OrderStatusProcessing:
		return model.NotificationOrderProcessing, "Order Being Prepared",
			fmt.Sprintf("Order %s is now being prepared", code)
	case model.OrderStatusReady:
		return model.NotificationOrderReady, "Order Ready",
			fmt.Sprintf("Order %s is ready for pickup or delivery", code)
	case model.OrderStatusDelivered:
		return model.NotificationOrderCompleted, "Order Delivered",
			fmt.Sprintf("Order %s has been delivered. Salamat po!", code)
	case model.OrderStatusCancelled:
		return model.NotificationOrderCancelled, "Order Cancelled",
			fmt.Sprintf("Order %s has been cancelled", code)
	case model.OrderStatusCancellationRequested:
		return model.NotificationCancellationRequested, "Cancellation Requested",
			fmt.Sprintf("A cancellation was requested for order %s", code)
	default:
		return model.NotificationOrderStatusChanged, "Order Updated",
			fmt.Sprintf("Order %s status changed to %s", code, order.EffectiveStatus())
	}
}

func productEventTemplate(eventType string, product *model.Product, farmer *model.Profile) (title, message string) {
	switch eventType {
	case model.NotificationProductCreated:
		return "New Product Pending Review",
			fmt.Sprintf("%s listed %s for review", farmer.Name, product.Name)
	case model.NotificationProductUpdated:
		return "Product Updated",
			fmt.Sprintf("%s updated %s", farmer.Name, product.Name)
	case model.NotificationProductDeleted:
		return "Product Removed",
			fmt.Sprintf("%s removed %s from the marketplace", farmer.Name, product.Name)
	default:
		return "Product Event", fmt.Sprintf("%s: %s", farmer.Name, product.Name)
	}
}

func orderURL(id uint64) *string {
	u := fmt.Sprintf("/orders/%d", id)
	return &u
}

func orderActionData(order *model.Order) model.JSONMap {
	return model.JSONMap{
		"order_id":      order.ID,
		"purchase_code": order.PurchaseCode,
		"status":        order.EffectiveStatus(),
	}
}

func productName(order *model.Order) string {
	if order.Product != nil {
		return order.Product.Name
	}
	return "your product"
}

func productUnit(order *model.Order) string {
	if order.Product != nil {
		return order.Product.Unit
	}
	return "unit(s)"
}
