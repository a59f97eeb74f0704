package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"farm2go/internal/model"
	"farm2go/internal/repository"
	iutils "farm2go/internal/utils"
	"farm2go/pkg/log"
	"farm2go/pkg/utils"
)

// maxLoginAttempts failed logins before the account is cooled down
const maxLoginAttempts = 5

// loginCooldown lockout window after too many failures
const loginCooldown = 30 * time.Minute

// RegisterRequest register request
type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=100"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,phone"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
	Role     string  `json:"role" binding:"required,oneof=buyer farmer"`
	Barangay string  `json:"barangay" binding:"required,max=100"`
	FarmName *string `json:"farm_name,omitempty" binding:"omitempty,max=200"`
}

// LoginRequest login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AuthService authentication service interface
type AuthService interface {
	// Register a profile; accounts start pending until a barangay admin
	// approves them
	Register(ctx context.Context, req *RegisterRequest) (*model.Profile, error)

	// Login with email and password
	Login(ctx context.Context, req *LoginRequest) (*TokenResponse, *model.Profile, error)

	// Logout invalidates the active token
	Logout(ctx context.Context, profileID uint64, token string) error

	// Validate an access token
	ValidateToken(ctx context.Context, token string) (*iutils.JWTClaims, error)

	// Refresh an access token from a refresh token
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// Change password
	ChangePassword(ctx context.Context, profileID uint64, oldPassword, newPassword string) error
}

// authService authentication service implementation
type authService struct {
	profileRepo repository.ProfileRepository
	jwtManager  *iutils.JWTManager
	redisClient *redis.Client
}

// NewAuthService creates an authentication service
func NewAuthService(
	profileRepo repository.ProfileRepository,
	jwtManager *iutils.JWTManager,
	redisClient *redis.Client,
) AuthService {
	return &authService{
		profileRepo: profileRepo,
		jwtManager:  jwtManager,
		redisClient: redisClient,
	}
}

// Register registers a profile
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*model.Profile, error) {
	if _, err := s.profileRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already registered")
	} else if !errors.Is(err, utils.ErrProfileNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		log.Errorf("Failed to hash password: %v", err)
		return nil, errors.New("registration failed")
	}

	profile := &model.Profile{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         req.Role,
		Barangay:     req.Barangay,
		FarmName:     req.FarmName,
		Status:       model.ProfileStatusPending,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		log.Errorf("Failed to create profile: %v", err)
		return nil, errors.New("registration failed")
	}

	log.WithFields(map[string]interface{}{
		"profile_id": profile.ID,
		"role":       profile.Role,
		"barangay":   profile.Barangay,
	}).Info("Profile registered, awaiting approval")

	return profile, nil
}

// Login logs a profile in
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, *model.Profile, error) {
	profile, err := s.profileRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, errors.New("email or password incorrect")
	}

	if err := s.checkLoginAttempts(ctx, profile.ID); err != nil {
		return nil, nil, err
	}

	if !utils.CheckPassword(req.Password, profile.PasswordHash) {
		s.recordLoginFailure(ctx, profile.ID)
		return nil, nil, errors.New("email or password incorrect")
	}

	if !profile.IsApproved() {
		return nil, nil, utils.ErrProfileNotApproved
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(profile.ID, profile.Email, profile.Role, profile.Barangay)
	if err != nil {
		log.Errorf("Failed to generate access token: %v", err)
		return nil, nil, errors.New("login failed")
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(profile.ID, profile.Email)
	if err != nil {
		log.Errorf("Failed to generate refresh token: %v", err)
		return nil, nil, errors.New("login failed")
	}

	expire := s.jwtManager.AccessExpire()
	s.redisClient.Set(ctx, tokenKey(profile.ID), accessToken, expire)
	s.clearLoginFailures(ctx, profile.ID)

	if err := s.profileRepo.TouchLastSeen(ctx, profile.ID); err != nil {
		log.Debugf("last seen update skipped: %v", err)
	}

	log.WithFields(map[string]interface{}{
		"profile_id": profile.ID,
		"role":       profile.Role,
	}).Info("Profile logged in")

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(expire.Seconds()),
		TokenType:    "Bearer",
	}, profile, nil
}

// Logout logs a profile out
func (s *authService) Logout(ctx context.Context, profileID uint64, token string) error {
	s.redisClient.Del(ctx, tokenKey(profileID))

	// Blacklist the token until it would have expired anyway.
	s.redisClient.Set(ctx, blacklistKey(token), "1", s.jwtManager.AccessExpire())

	log.Infof("Profile %d logged out", profileID)
	return nil
}

// ValidateToken validates an access token
func (s *authService) ValidateToken(ctx context.Context, token string) (*iutils.JWTClaims, error) {
	exists, _ := s.redisClient.Exists(ctx, blacklistKey(token)).Result()
	if exists > 0 {
		return nil, errors.New("token invalid")
	}

	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	stored, err := s.redisClient.Get(ctx, tokenKey(claims.ProfileID)).Result()
	if err != nil || stored != token {
		return nil, errors.New("token invalid")
	}

	return claims, nil
}

// RefreshToken refreshes an access token
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, errors.New("refresh token invalid")
	}

	// Role and barangay may have changed since the refresh token was
	// minted; reload the profile instead of trusting stale claims.
	profile, err := s.profileRepo.GetByID(ctx, claims.ProfileID)
	if err != nil {
		return nil, err
	}
	if !profile.IsApproved() {
		return nil, utils.ErrProfileNotApproved
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(profile.ID, profile.Email, profile.Role, profile.Barangay)
	if err != nil {
		return nil, errors.New("token refresh failed")
	}

	expire := s.jwtManager.AccessExpire()
	s.redisClient.Set(ctx, tokenKey(profile.ID), accessToken, expire)

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(expire.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ChangePassword changes a profile's password
func (s *authService) ChangePassword(ctx context.Context, profileID uint64, oldPassword, newPassword string) error {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return err
	}

	if !utils.CheckPassword(oldPassword, profile.PasswordHash) {
		return errors.New("old password incorrect")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return errors.New("password change failed")
	}

	profile.PasswordHash = hash
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return errors.New("password change failed")
	}

	// Force a fresh login everywhere.
	s.redisClient.Del(ctx, tokenKey(profileID))

	log.Infof("Profile %d changed password", profileID)
	return nil
}

func (s *authService) checkLoginAttempts(ctx context.Context, profileID uint64) error {
	attempts, _ := s.redisClient.Get(ctx, attemptsKey(profileID)).Int()
	if attempts >= maxLoginAttempts {
		return errors.New("too many failed logins, try again later")
	}
	return nil
}

func (s *authService) recordLoginFailure(ctx context.Context, profileID uint64) {
	key := attemptsKey(profileID)
	s.redisClient.Incr(ctx, key)
	s.redisClient.Expire(ctx, key, loginCooldown)
}

func (s *authService) clearLoginFailures(ctx context.Context, profileID uint64) {
	s.redisClient.Del(ctx, attemptsKey(profileID))
}

func tokenKey(profileID uint64) string {
	return fmt.Sprintf("auth:token:%d", profileID)
}

func blacklistKey(token string) string {
	return fmt.Sprintf("auth:blacklist:%s", token)
}

func attemptsKey(profileID uint64) string {
	return fmt.Sprintf("auth:login_attempts:%d", profileID)
}
