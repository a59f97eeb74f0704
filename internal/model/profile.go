package model

import (
	"time"
)

// Profile platform account model
type Profile struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement;comment:profile ID" json:"id"`
	Name         string     `gorm:"type:varchar(100);not null;comment:display name" json:"name"`
	Email        string     `gorm:"type:varchar(100);uniqueIndex;not null;comment:email" json:"email"`
	Phone        *string    `gorm:"type:varchar(20);comment:phone number" json:"phone,omitempty"`
	PasswordHash string     `gorm:"type:varchar(255);not null;comment:password hash" json:"-"`
	Role         string     `gorm:"type:varchar(20);not null;index;comment:role" json:"role"`
	Barangay     string     `gorm:"type:varchar(100);index;comment:barangay" json:"barangay"`
	FarmName     *string    `gorm:"type:varchar(200);comment:farm name (farmers)" json:"farm_name,omitempty"`
	Status       string     `gorm:"type:varchar(20);not null;default:pending;index;comment:approval status" json:"status"`
	LastSeenAt   *time.Time `gorm:"type:timestamp;comment:last seen time" json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index;comment:created time" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:updated time" json:"updated_at"`
}

// TableName set name
func (Profile) TableName() string {
	return "profiles"
}

// Profile roles
const (
	RoleBuyer      = "buyer"
	RoleFarmer     = "farmer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Profile approval status
const (
	ProfileStatusPending  = "pending"
	ProfileStatusApproved = "approved"
	ProfileStatusRejected = "rejected"
)

// IsAdmin check if profile has an admin role
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}

// IsFarmer check if profile is a farmer
func (p *Profile) IsFarmer() bool {
	return p.Role == RoleFarmer
}

// IsApproved check if profile is approved
func (p *Profile) IsApproved() bool {
	return p.Status == ProfileStatusApproved
}
