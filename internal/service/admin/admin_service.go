package admin

import (
	"context"
	"errors"

	"farm2go/internal/model"
	"farm2go/internal/repository"
	"farm2go/internal/service/notify"
	"farm2go/pkg/log"
	"farm2go/pkg/utils"
)

// ProvisionAdminRequest barangay admin provisioning input
type ProvisionAdminRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=100"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,phone"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
	Barangay string  `json:"barangay" binding:"required,max=100"`
}

// AnnounceRequest role-wide announcement input
type AnnounceRequest struct {
	Role    string `json:"role" binding:"required,oneof=buyer farmer admin"`
	Title   string `json:"title" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=1000"`
}

// AdminService moderation and administration interface
type AdminService interface {
	// Approve or reject a pending account
	ModerateUser(ctx context.Context, adminID, profileID uint64, approve bool) (*model.Profile, error)

	// Approve or reject a pending product listing
	ModerateProduct(ctx context.Context, adminID, productID uint64, approve bool) (*model.Product, error)

	// Provision a barangay admin account; super admin only, enforced by
	// the transport layer
	ProvisionAdmin(ctx context.Context, actorID uint64, req *ProvisionAdminRequest) (*model.Profile, error)

	// Remove an account
	RemoveUser(ctx context.Context, adminID, profileID uint64) error

	// Broadcast a system message to every approved profile of a role
	Announce(ctx context.Context, adminID uint64, req *AnnounceRequest) error

	// List profiles filtered by role and status
	ListProfiles(ctx context.Context, page, pageSize int, role, status string) ([]*model.Profile, int64, error)

	// List products pending review
	ListPendingProducts(ctx context.Context, page, pageSize int) ([]*model.Product, int64, error)
}

// adminService moderation and administration implementation
type adminService struct {
	profileRepo repository.ProfileRepository
	productRepo repository.ProductRepository
	notifier    notify.NotifyService
}

// NewAdminService creates an admin service
func NewAdminService(
	profileRepo repository.ProfileRepository,
	productRepo repository.ProductRepository,
	notifier notify.NotifyService,
) AdminService {
	return &adminService{
		profileRepo: profileRepo,
		productRepo: productRepo,
		notifier:    notifier,
	}
}

// ModerateUser approves or rejects a pending account
func (s *adminService) ModerateUser(ctx context.Context, adminID, profileID uint64, approve bool) (*model.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	status := model.ProfileStatusApproved
	if !approve {
		status = model.ProfileStatusRejected
	}

	if err := s.profileRepo.UpdateStatus(ctx, profileID, status); err != nil {
		return nil, err
	}
	profile.Status = status

	if err := s.notifier.NotifyUserModeration(ctx, profile, approve, adminID); err != nil {
		log.Warnf("Moderation decision for profile %d recorded but notification failed: %v", profileID, err)
	}

	log.WithFields(map[string]interface{}{
		"profile_id": profileID,
		"admin_id":   adminID,
		"status":     status,
	}).Info("Account moderated")

	return profile, nil
}

// ModerateProduct approves or rejects a pending product listing
func (s *adminService) ModerateProduct(ctx context.Context, adminID, productID uint64, approve bool) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	status := model.ProductStatusApproved
	if !approve {
		status = model.ProductStatusRejected
	}

	if err := s.productRepo.UpdateApprovalStatus(ctx, productID, status); err != nil {
		return nil, err
	}
	product.ApprovalStatus = status

	if err := s.notifier.NotifyProductModeration(ctx, product, approve, adminID); err != nil {
		log.Warnf("Moderation decision for product %d recorded but notification failed: %v", productID, err)
	}

	log.WithFields(map[string]interface{}{
		"product_id": productID,
		"admin_id":   adminID,
		"status":     status,
	}).Info("Product moderated")

	return product, nil
}

// ProvisionAdmin creates a pre-approved barangay admin account
func (s *adminService) ProvisionAdmin(ctx context.Context, actorID uint64, req *ProvisionAdminRequest) (*model.Profile, error) {
	if _, err := s.profileRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already registered")
	} else if !errors.Is(err, utils.ErrProfileNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Errorf("Failed to hash admin password: %v", err)
		return nil, errors.New("provisioning failed")
	}

	profile := &model.Profile{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Barangay:     req.Barangay,
		Status:       model.ProfileStatusApproved,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		log.Errorf("Failed to provision admin: %v", err)
		return nil, errors.New("provisioning failed")
	}

	log.WithFields(map[string]interface{}{
		"profile_id": profile.ID,
		"barangay":   profile.Barangay,
		"actor_id":   actorID,
	}).Info("Barangay admin provisioned")

	return profile, nil
}

// RemoveUser deletes an account after telling the subject
func (s *adminService) RemoveUser(ctx context.Context, adminID, profileID uint64) error {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if profile.Role == model.RoleSuperAdmin {
		return errors.New("super admin accounts cannot be removed")
	}

	if err := s.profileRepo.Delete(ctx, profileID); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"profile_id": profileID,
		"admin_id":   adminID,
	}).Info("Account removed")

	return nil
}

// Announce broadcasts a system message to a role
func (s *adminService) Announce(ctx context.Context, adminID uint64, req *AnnounceRequest) error {
	return s.notifier.Announce(ctx, adminID, req.Role, req.Title, req.Message)
}

// ListProfiles lists profiles filtered by role and status
func (s *adminService) ListProfiles(ctx context.Context, page, pageSize int, role, status string) ([]*model.Profile, int64, error) {
	return s.profileRepo.List(ctx, page, pageSize, role, status)
}

// ListPendingProducts lists products waiting for review
func (s *adminService) ListPendingProducts(ctx context.Context, page, pageSize int) ([]*model.Product, int64, error) {
	return s.productRepo.List(ctx, page, pageSize, model.ProductStatusPending)
}
