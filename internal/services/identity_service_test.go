// internal/services/identity_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/heimly/heimly-backend/internal/cache"
	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
)

type IdentityServiceTestSuite struct {
	suite.Suite
	store    *store.Memory
	tokens   *cache.Memory
	notifier *stubNotifier
	service  *IdentityService

	owner   *models.User
	staff   *models.User
	profile *models.OwnerProfile
}

func (s *IdentityServiceTestSuite) SetupTest() {
	s.store = store.NewMemory()
	s.tokens = cache.NewMemory()
	s.notifier = &stubNotifier{}
	s.service = NewIdentityService(s.store, s.tokens, s.notifier)

	s.owner = &models.User{Username: "bola", Email: "bola@example.com", Role: models.UserRoleOwner}
	s.Require().NoError(s.owner.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(s.owner))

	s.staff = &models.User{Username: "reviewer", Email: "staff@example.com", Role: models.UserRoleStaff}
	s.Require().NoError(s.staff.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(s.staff))

	s.profile = &models.OwnerProfile{
		UserID:         s.owner.ID,
		IdentityStatus: models.IdentityStatusIncomplete,
	}
	s.Require().NoError(s.store.CreateOwnerProfile(s.profile))
}

func (s *IdentityServiceTestSuite) auditActions() []string {
	entries, err := s.store.ListAudit(models.OwnerProfileSubject(s.profile.ID))
	s.Require().NoError(err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *IdentityServiceTestSuite) TestCompleteSubmissionEntersPendingReview() {
	updated, err := s.service.RecordIdentitySubmission(s.profile.ID, &IdentitySubmission{
		PhoneNumber:   "+2348012345678",
		IDType:        models.IDTypeNIN,
		IDNumber:      "12345678901",
		IDDocumentKey: "owner_ids/nin.jpg",
	})
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusPendingReview, updated.IdentityStatus)
}

func (s *IdentityServiceTestSuite) TestPartialSubmissionStaysIncomplete() {
	updated, err := s.service.RecordIdentitySubmission(s.profile.ID, &IdentitySubmission{
		IDType:   models.IDTypeNIN,
		IDNumber: "12345678901",
	})
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusIncomplete, updated.IdentityStatus)
}

func (s *IdentityServiceTestSuite) TestResubmissionAfterRejectionReentersReview() {
	s.profile.IDType = models.IDTypeNIN
	s.profile.IDNumber = "12345678901"
	s.profile.IDDocumentKey = "owner_ids/nin.jpg"
	s.profile.IdentityStatus = models.IdentityStatusRejected
	s.Require().NoError(s.store.SaveOwnerProfile(s.profile))

	updated, err := s.service.RecordIdentitySubmission(s.profile.ID, &IdentitySubmission{
		IDDocumentKey: "owner_ids/nin-retake.jpg",
	})
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusPendingReview, updated.IdentityStatus)
}

func (s *IdentityServiceTestSuite) TestContactUpdateKeepsApproval() {
	s.profile.IDType = models.IDTypeNIN
	s.profile.IDNumber = "12345678901"
	s.profile.IDDocumentKey = "owner_ids/nin.jpg"
	s.profile.IdentityStatus = models.IdentityStatusApproved
	s.Require().NoError(s.store.SaveOwnerProfile(s.profile))

	updated, err := s.service.RecordIdentitySubmission(s.profile.ID, &IdentitySubmission{
		WhatsAppNumber: "+2348098765432",
	})
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusApproved, updated.IdentityStatus)
}

func (s *IdentityServiceTestSuite) TestChangedIDAfterApprovalReentersReview() {
	s.profile.IDType = models.IDTypeNIN
	s.profile.IDNumber = "12345678901"
	s.profile.IDDocumentKey = "owner_ids/nin.jpg"
	s.profile.IdentityStatus = models.IdentityStatusApproved
	s.Require().NoError(s.store.SaveOwnerProfile(s.profile))

	updated, err := s.service.RecordIdentitySubmission(s.profile.ID, &IdentitySubmission{
		IDNumber:      "98765432109",
		IDDocumentKey: "owner_ids/nin-renewed.jpg",
	})
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusPendingReview, updated.IdentityStatus)
}

func (s *IdentityServiceTestSuite) TestApproveIdentityIsGuarded() {
	s.Require().NoError(s.service.ApproveIdentity(s.profile.ID, s.staff.ID, "documents check out"))

	profile, err := s.store.GetOwnerProfile(s.profile.ID)
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusApproved, profile.IdentityStatus)
	s.Equal(&s.staff.ID, profile.IdentityReviewerID)
	s.NotNil(profile.IdentityReviewedAt)
	s.Equal("documents check out", profile.IdentityNotes)

	// Re-approval is a no-op for the audit log.
	s.Require().NoError(s.service.ApproveIdentity(s.profile.ID, s.staff.ID, "again"))
	s.Equal([]string{models.ActionProfileApproved}, s.auditActions())
}

func (s *IdentityServiceTestSuite) TestRejectIdentityRecordsNotes() {
	s.Require().NoError(s.service.RejectIdentity(s.profile.ID, s.staff.ID, "ID photo unreadable"))

	profile, err := s.store.GetOwnerProfile(s.profile.ID)
	s.Require().NoError(err)
	s.Equal(models.IdentityStatusRejected, profile.IdentityStatus)
	s.Equal("ID photo unreadable", profile.IdentityNotes)
	s.Equal([]string{models.ActionProfileRejected}, s.auditActions())
}

func (s *IdentityServiceTestSuite) TestBulkApproveSkipsMissingAndApproved() {
	other := &models.OwnerProfile{UserID: s.staff.ID, IdentityStatus: models.IdentityStatusApproved}
	s.Require().NoError(s.store.CreateOwnerProfile(other))

	affected, err := s.service.ApproveIdentityBulk(
		[]uuid.UUID{s.profile.ID, other.ID, uuid.New()},
		s.staff.ID, "")
	s.Require().NoError(err)
	s.Equal(1, affected)
}

func (s *IdentityServiceTestSuite) TestAdminEmailVerificationIsIdempotent() {
	s.Require().NoError(s.service.VerifyEmailByAdmin(s.profile.ID, s.staff.ID))

	profile, err := s.store.GetOwnerProfile(s.profile.ID)
	s.Require().NoError(err)
	s.Require().NotNil(profile.EmailVerifiedAt)
	first := *profile.EmailVerifiedAt

	s.Require().NoError(s.service.VerifyEmailByAdmin(s.profile.ID, s.staff.ID))

	profile, err = s.store.GetOwnerProfile(s.profile.ID)
	s.Require().NoError(err)
	s.Equal(first, *profile.EmailVerifiedAt)
	s.Equal([]string{models.ActionEmailVerifiedByAdmin}, s.auditActions())
}

func (s *IdentityServiceTestSuite) TestPhoneVerificationRequiresNumber() {
	err := s.service.VerifyPhoneByAdmin(s.profile.ID, s.staff.ID)
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)
}

func (s *IdentityServiceTestSuite) TestEmailVerificationFlow() {
	ctx := context.Background()
	s.Require().NoError(s.service.RequestEmailVerification(ctx, s.profile.ID))

	var token string
	s.Require().Eventually(func() bool {
		t, ok := s.notifier.lastEmailToken()
		token = t
		return ok
	}, time.Second, 10*time.Millisecond)

	s.Require().NoError(s.service.ConfirmEmailVerification(ctx, token))

	profile, err := s.store.GetOwnerProfile(s.profile.ID)
	s.Require().NoError(err)
	s.NotNil(profile.EmailVerifiedAt)
	s.Contains(s.auditActions(), models.ActionEmailVerificationRequested)
	s.Contains(s.auditActions(), models.ActionEmailVerified)

	// Tokens are single-use.
	err = s.service.ConfirmEmailVerification(ctx, token)
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)
}

func (s *IdentityServiceTestSuite) TestConfirmEmailWithUnknownToken() {
	err := s.service.ConfirmEmailVerification(context.Background(), "bogus")
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)
}

func (s *IdentityServiceTestSuite) TestPhoneOTPFlow() {
	ctx := context.Background()
	s.profile.PhoneNumber = "+2348012345678"
	s.Require().NoError(s.store.SaveOwnerProfile(s.profile))

	s.Require().NoError(s.service.RequestPhoneOTP(ctx, s.profile.ID))

	code, err := s.tokens.Get(ctx, fmt.Sprintf("phone_otp_%s", s.profile.ID))
	s.Require().NoError(err)
	s.Len(code, 6)

	// Wrong code leaves the stored one intact.
	err = s.service.VerifyPhoneOTP(ctx, s.profile.ID, "000000x")
	s.Require().Error(err)

	s.Require().NoError(s.service.VerifyPhoneOTP(ctx, s.profile.ID, code))

	profile, err := s.store.GetOwnerProfile(s.profile.ID)
	s.Require().NoError(err)
	s.NotNil(profile.PhoneVerifiedAt)

	// The code is consumed on success.
	err = s.service.VerifyPhoneOTP(ctx, s.profile.ID, code)
	s.Require().Error(err)
}

func (s *IdentityServiceTestSuite) TestRequestOTPWithoutNumber() {
	err := s.service.RequestPhoneOTP(context.Background(), s.profile.ID)
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)
}

func TestIdentityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceTestSuite))
}
