package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"farm2go/internal/model"
	"farm2go/pkg/utils"
)

// ProfileRepository profile repository interface
type ProfileRepository interface {
	// Create profile
	Create(ctx context.Context, profile *model.Profile) error

	// Get profile by ID
	GetByID(ctx context.Context, id uint64) (*model.Profile, error)

	// Get profile by email
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)

	// Update profile
	Update(ctx context.Context, profile *model.Profile) error

	// Update approval status
	UpdateStatus(ctx context.Context, id uint64, status string) error

	// Touch last seen time
	TouchLastSeen(ctx context.Context, id uint64) error

	// List admins of a barangay, excluding one profile
	ListAdminsByBarangay(ctx context.Context, barangay string, excludeID uint64) ([]*model.Profile, error)

	// List profiles by role
	ListByRole(ctx context.Context, role string) ([]*model.Profile, error)

	// List profiles
	List(ctx context.Context, page, pageSize int, role, status string) ([]*model.Profile, int64, error)

	// Delete profile
	Delete(ctx context.Context, id uint64) error
}

// profileRepository profile repository implementation
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create creates a profile
func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID gets a profile by ID
func (r *profileRepository) GetByID(ctx context.Context, id uint64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetByEmail gets a profile by email
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Update updates a profile
func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// UpdateStatus updates the approval status
func (r *profileRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrProfileNotFound
	}
	return nil
}

// TouchLastSeen stamps the last seen time
func (r *profileRepository) TouchLastSeen(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Update("last_seen_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// ListAdminsByBarangay lists approved admins scoped to a barangay.
// Super admins see every barangay. The acting profile is excluded so
// events never notify their own author.
func (r *profileRepository) ListAdminsByBarangay(ctx context.Context, barangay string, excludeID uint64) ([]*model.Profile, error) {
	var admins []*model.Profile

	db := r.db.WithContext(ctx).
		Where("status = ?", model.ProfileStatusApproved).
		Where("role = ? AND barangay = ? OR role = ?", model.RoleAdmin, barangay, model.RoleSuperAdmin)

	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}

	err := db.Find(&admins).Error
	return admins, err
}

// ListByRole lists approved profiles of a role
func (r *profileRepository) ListByRole(ctx context.Context, role string) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", role, model.ProfileStatusApproved).
		Find(&profiles).Error
	return profiles, err
}

// List lists profiles with optional role and status filters
func (r *profileRepository) List(ctx context.Context, page, pageSize int, role, status string) ([]*model.Profile, int64, error) {
	var profiles []*model.Profile
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).Model(&model.Profile{})

	if role != "" {
		db = db.Where("role = ?", role)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&profiles).Error

	return profiles, total, err
}

// Delete deletes a profile
func (r *profileRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&model.Profile{}, id).Error
}
