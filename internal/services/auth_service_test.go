// internal/services/auth_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/heimly/heimly-backend/internal/cache"
	"github.com/heimly/heimly-backend/internal/config"
	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

type AuthServiceTestSuite struct {
	suite.Suite
	store   *store.Memory
	service *AuthService
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.store = store.NewMemory()
	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  24,
			RefreshTokenTTL: 168,
		},
	}
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	identity := NewIdentityService(s.store, cache.NewMemory(), &stubNotifier{})
	s.service = NewAuthService(s.store, cfg, identity)
}

func (s *AuthServiceTestSuite) register() *AuthResponse {
	resp, err := s.service.Register(context.Background(), &RegisterRequest{
		Username: "funke",
		Email:    "funke@example.com",
		Password: "Str0ngPass!",
	})
	s.Require().NoError(err)
	return resp
}

func (s *AuthServiceTestSuite) TestRegisterCreatesUserAndProfile() {
	resp := s.register()
	s.Equal(models.UserRoleOwner, resp.User.Role)
	s.Equal("Bearer", resp.TokenType)
	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)
	s.Equal(24*3600, resp.ExpiresIn)

	profile, err := s.store.GetOwnerProfileByUserID(resp.User.ID)
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusIncomplete, profile.IdentityStatus)
	s.Equal(models.PreferredContactEmail, profile.PreferredContact)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(resp.User.ID.String(), claims.UserID)
	s.Equal(string(models.UserRoleOwner), claims.Role)
}

func (s *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	s.register()

	_, err := s.service.Register(context.Background(), &RegisterRequest{
		Username: "someone_else",
		Email:    "funke@example.com",
		Password: "Str0ngPass!",
	})
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)

	// The failed registration leaves no half-created user behind.
	_, err = s.store.GetUserByEmail("funke@example.com")
	s.Require().NoError(err)
}

func (s *AuthServiceTestSuite) TestRegisterRejectsWeakPassword() {
	_, err := s.service.Register(context.Background(), &RegisterRequest{
		Username: "funke",
		Email:    "funke@example.com",
		Password: "password",
	})
	s.Require().Error(err)
}

func (s *AuthServiceTestSuite) TestLogin() {
	registered := s.register()

	resp, err := s.service.Login(&LoginRequest{
		Email:    "funke@example.com",
		Password: "Str0ngPass!",
	})
	s.Require().NoError(err)
	s.Equal(registered.User.ID, resp.User.ID)

	user, err := s.store.GetUser(resp.User.ID)
	s.Require().NoError(err)
	s.NotNil(user.LastLoginAt)
}

func (s *AuthServiceTestSuite) TestLoginWrongPassword() {
	s.register()

	_, err := s.service.Login(&LoginRequest{
		Email:    "funke@example.com",
		Password: "WrongPass1!",
	})
	s.Require().EqualError(err, "invalid email or password")
}

func (s *AuthServiceTestSuite) TestLoginUnknownEmail() {
	_, err := s.service.Login(&LoginRequest{
		Email:    "nobody@example.com",
		Password: "Str0ngPass!",
	})
	s.Require().EqualError(err, "invalid email or password")
}

func (s *AuthServiceTestSuite) TestRefreshToken() {
	registered := s.register()

	resp, err := s.service.RefreshToken(registered.RefreshToken)
	s.Require().NoError(err)
	s.Equal(registered.User.ID, resp.User.ID)
	s.NotEmpty(resp.AccessToken)

	_, err = s.service.RefreshToken("not-a-token")
	s.Require().EqualError(err, "invalid refresh token")
}

func (s *AuthServiceTestSuite) TestGetProfileForStaff() {
	staff := &models.User{Username: "reviewer", Email: "staff@example.com", Role: models.UserRoleStaff}
	s.Require().NoError(staff.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(staff))

	user, profile, err := s.service.GetProfile(staff.ID)
	s.Require().NoError(err)
	s.Equal(staff.ID, user.ID)
	s.Nil(profile)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
