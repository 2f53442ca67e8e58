// internal/handlers/auth_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/heimly/heimly-backend/internal/cache"
	"github.com/heimly/heimly-backend/internal/config"
	"github.com/heimly/heimly-backend/internal/middleware"
	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/services"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

type noopNotifier struct{}

func (noopNotifier) SendVerificationEmail(string, string) error                       { return nil }
func (noopNotifier) SendPhoneOTP(string, string) error                                { return nil }
func (noopNotifier) NotifyListingSubmitted(*models.Listing, string) error             { return nil }
func (noopNotifier) NotifyListingApproved(*models.Listing, string) error              { return nil }
func (noopNotifier) NotifyListingRejected(*models.Listing, string, string) error      { return nil }
func (noopNotifier) NotifyIdentityApproved(*models.OwnerProfile, string) error        { return nil }
func (noopNotifier) NotifyIdentityRejected(*models.OwnerProfile, string, string) error { return nil }
func (noopNotifier) NotifyDocumentRejected(*models.ListingDocument, string, string) error {
	return nil
}

type AuthHandlerTestSuite struct {
	suite.Suite
	store  *store.Memory
	router *gin.Engine
}

func (s *AuthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

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

	identityService := services.NewIdentityService(s.store, cache.NewMemory(), noopNotifier{})
	authService := services.NewAuthService(s.store, cfg, identityService)
	authHandler := NewAuthHandler(authService, identityService)

	s.router = gin.New()
	auth := s.router.Group("/v1/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
	}
	s.router.GET("/v1/staff/ping", middleware.AuthRequired(), middleware.StaffRequired(), func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"message": "pong"})
	})
}

func (s *AuthHandlerTestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AuthHandlerTestSuite) decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var payload map[string]interface{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func (s *AuthHandlerTestSuite) registerOwner() string {
	rec := s.request(http.MethodPost, "/v1/auth/register", gin.H{
		"username": "gbenga",
		"email":    "gbenga@example.com",
		"password": "Str0ngPass!",
	}, "")
	s.Require().Equal(http.StatusCreated, rec.Code)

	data := s.decode(rec)["data"].(map[string]interface{})
	return data["token"].(string)
}

func (s *AuthHandlerTestSuite) TestRegisterAndMe() {
	token := s.registerOwner()

	rec := s.request(http.MethodGet, "/v1/auth/me", nil, token)
	s.Require().Equal(http.StatusOK, rec.Code)

	data := s.decode(rec)["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	s.Equal("gbenga@example.com", user["email"])
	s.NotNil(data["profile"])
}

func (s *AuthHandlerTestSuite) TestRegisterValidation() {
	rec := s.request(http.MethodPost, "/v1/auth/register", gin.H{
		"username": "gbenga",
		"email":    "not-an-email",
		"password": "Str0ngPass!",
	}, "")
	s.Equal(http.StatusBadRequest, rec.Code)

	payload := s.decode(rec)
	s.Equal(false, payload["success"])
}

func (s *AuthHandlerTestSuite) TestDuplicateRegistration() {
	s.registerOwner()

	rec := s.request(http.MethodPost, "/v1/auth/register", gin.H{
		"username": "gbenga",
		"email":    "gbenga@example.com",
		"password": "Str0ngPass!",
	}, "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AuthHandlerTestSuite) TestLoginAndRefresh() {
	s.registerOwner()

	rec := s.request(http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "gbenga@example.com",
		"password": "Str0ngPass!",
	}, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	data := s.decode(rec)["data"].(map[string]interface{})
	refresh := data["refresh_token"].(string)

	rec = s.request(http.MethodPost, "/v1/auth/refresh", gin.H{"refresh_token": refresh}, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodPost, "/v1/auth/login", gin.H{
		"email":    "gbenga@example.com",
		"password": "WrongPass1!",
	}, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerTestSuite) TestMeRequiresToken() {
	rec := s.request(http.MethodGet, "/v1/auth/me", nil, "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.request(http.MethodGet, "/v1/auth/me", nil, "garbage")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerTestSuite) TestStaffGuardRejectsOwners() {
	token := s.registerOwner()

	rec := s.request(http.MethodGet, "/v1/staff/ping", nil, token)
	s.Equal(http.StatusForbidden, rec.Code)

	staff := &models.User{Username: "reviewer", Email: "staff@example.com", Role: models.UserRoleStaff}
	s.Require().NoError(staff.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(staff))

	staffToken, err := utils.GenerateJWT(staff.ID, staff.Username, string(staff.Role), 1)
	s.Require().NoError(err)

	rec = s.request(http.MethodGet, "/v1/staff/ping", nil, staffToken)
	s.Equal(http.StatusOK, rec.Code)
}

func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
