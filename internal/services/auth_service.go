// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heimly/heimly-backend/internal/config"
	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

// AuthService handles account registration and token issuance. Every owner
// account gets its OwnerProfile at registration; KYC state never has to be
// lazily materialized later.
type AuthService struct {
	store    store.Store
	config   *config.Config
	identity *IdentityService
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,username"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strong_password"`
	FullName    string `json:"full_name,omitempty" validate:"omitempty,max=150"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
}

func NewAuthService(st store.Store, cfg *config.Config, identity *IdentityService) *AuthService {
	return &AuthService{
		store:    st,
		config:   cfg,
		identity: identity,
	}
}

// Register creates the user and its owner profile in one transaction, then
// kicks off email verification.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.UserRoleOwner,
		FullName: req.FullName,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var profile *models.OwnerProfile
	err := s.store.Atomic(func(tx store.Store) error {
		if err := tx.CreateUser(user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return NewValidationError("An account with this email or username already exists")
			}
			return err
		}

		profile = &models.OwnerProfile{
			UserID:           user.ID,
			PhoneNumber:      req.PhoneNumber,
			PreferredContact: models.PreferredContactEmail,
			IdentityStatus:   models.IdentityStatusIncomplete,
		}
		return tx.CreateOwnerProfile(profile)
	})
	if err != nil {
		return nil, err
	}

	if err := s.identity.RequestEmailVerification(ctx, profile.ID); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to start email verification")
	}

	return s.issueTokens(user)
}

// Login verifies credentials and records the login time.
func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.store.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("invalid email or password")
		}
		return nil, err
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, errors.New("invalid email or password")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.SaveUser(user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record login time")
	}

	return s.issueTokens(user)
}

// RefreshToken exchanges a valid refresh token for a new token pair.
func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	return s.issueTokens(user)
}

// GetProfile loads the authenticated user together with its owner profile,
// when one exists. Staff accounts have no profile.
func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, *models.OwnerProfile, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.store.GetOwnerProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user, nil, nil
		}
		return nil, nil, err
	}
	return user, profile, nil
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.config.JWT.AccessTokenTTL * 3600,
	}, nil
}
