// internal/services/verification_service_test.go
package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
)

// stubNotifier records outbound notifications so tests can assert on them
// without any SMTP wiring.
type stubNotifier struct {
	mu          sync.Mutex
	submitted   []uuid.UUID
	approved    []uuid.UUID
	rejected    []uuid.UUID
	emailTokens []string
	otpCodes    []string
}

func (n *stubNotifier) SendVerificationEmail(_, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emailTokens = append(n.emailTokens, token)
	return nil
}

func (n *stubNotifier) SendPhoneOTP(_, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otpCodes = append(n.otpCodes, code)
	return nil
}

func (n *stubNotifier) lastEmailToken() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.emailTokens) == 0 {
		return "", false
	}
	return n.emailTokens[len(n.emailTokens)-1], true
}

func (n *stubNotifier) NotifyListingSubmitted(l *models.Listing, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, l.ID)
	return nil
}

func (n *stubNotifier) NotifyListingApproved(l *models.Listing, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, l.ID)
	return nil
}

func (n *stubNotifier) NotifyListingRejected(l *models.Listing, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, l.ID)
	return nil
}

func (n *stubNotifier) NotifyIdentityApproved(*models.OwnerProfile, string) error        { return nil }
func (n *stubNotifier) NotifyIdentityRejected(*models.OwnerProfile, string, string) error { return nil }
func (n *stubNotifier) NotifyDocumentRejected(*models.ListingDocument, string, string) error {
	return nil
}

type VerificationServiceTestSuite struct {
	suite.Suite
	store    *store.Memory
	notifier *stubNotifier
	service  *VerificationService

	owner   *models.User
	staff   *models.User
	profile *models.OwnerProfile
	listing *models.Listing
}

func (s *VerificationServiceTestSuite) SetupTest() {
	s.store = store.NewMemory()
	s.notifier = &stubNotifier{}
	s.service = NewVerificationService(s.store, s.notifier)

	s.owner = &models.User{Username: "ada", Email: "ada@example.com", Role: models.UserRoleOwner}
	s.Require().NoError(s.owner.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(s.owner))

	s.staff = &models.User{Username: "reviewer", Email: "staff@example.com", Role: models.UserRoleStaff}
	s.Require().NoError(s.staff.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(s.staff))

	now := time.Now()
	s.profile = &models.OwnerProfile{
		UserID:          s.owner.ID,
		PhoneNumber:     "+2348012345678",
		IdentityStatus:  models.IdentityStatusApproved,
		EmailVerifiedAt: &now,
	}
	s.Require().NoError(s.store.CreateOwnerProfile(s.profile))

	s.listing = &models.Listing{
		OwnerProfileID: s.profile.ID,
		Title:          "Two-bedroom flat in Yaba",
		PropertyType:   models.PropertyTypeApartment,
		ListingType:    models.ListingTypeRent,
		City:           "Lagos",
		Price:          450000,
		Status:         models.ListingStatusDraft,
		Visibility:     models.VisibilityPrivate,
	}
	s.Require().NoError(s.store.CreateListing(s.listing))
}

func (s *VerificationServiceTestSuite) addPhoto(primary bool) *models.ListingPhoto {
	photo := &models.ListingPhoto{
		ListingID:  s.listing.ID,
		StorageKey: "listing_photos/front.jpg",
		IsPrimary:  primary,
	}
	s.Require().NoError(s.store.CreatePhoto(photo))
	return photo
}

func (s *VerificationServiceTestSuite) addDocument() *models.ListingDocument {
	doc := &models.ListingDocument{
		ListingID:  s.listing.ID,
		DocType:    models.DocumentTypeCOfO,
		StorageKey: "listing_documents/cofo.pdf",
		Status:     models.DocumentStatusUploaded,
	}
	s.Require().NoError(s.store.CreateDocument(doc))
	return doc
}

func (s *VerificationServiceTestSuite) makeSubmittable() {
	s.addPhoto(true)
	s.addDocument()
}

func (s *VerificationServiceTestSuite) TestSubmitSuccess() {
	s.makeSubmittable()

	request, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)
	s.Require().NotNil(request)
	s.Equal(models.RequestStatePending, request.State)

	listing, err := s.store.GetListing(s.listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusInReview, listing.Status)
	s.Equal(models.VisibilityLimited, listing.Visibility)
	s.NotNil(listing.SubmittedAt)

	entries, err := s.store.ListAudit(models.ListingSubject(s.listing.ID))
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionListingSubmitted, entries[0].Action)
	s.Equal(request.ID.String(), entries[0].Payload["request_id"])
}

func (s *VerificationServiceTestSuite) TestSubmitCollectsAllViolations() {
	// Fresh profile with nothing verified and a bare listing.
	s.profile.IdentityStatus = models.IdentityStatusIncomplete
	s.profile.EmailVerifiedAt = nil
	s.Require().NoError(s.store.SaveOwnerProfile(s.profile))

	_, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().Error(err)

	ve, ok := AsValidationErrors(err)
	s.Require().True(ok)
	s.Equal([]string{
		MsgIdentityNotVerified,
		MsgNoVerifiedContact,
		MsgNoPhotos,
		MsgNoPrimaryPhoto,
		MsgNoDocuments,
	}, ve.Messages)

	// No state change on failure.
	listing, err := s.store.GetListing(s.listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusDraft, listing.Status)
	s.Nil(listing.SubmittedAt)

	requests, err := s.store.ListRequests(s.listing.ID)
	s.Require().NoError(err)
	s.Empty(requests)

	entries, err := s.store.ListAudit(models.ListingSubject(s.listing.ID))
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *VerificationServiceTestSuite) TestSubmitPrimaryPhotoMissing() {
	s.addPhoto(false)
	s.addDocument()

	_, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	ve, ok := AsValidationErrors(err)
	s.Require().True(ok)
	s.Equal([]string{MsgNoPrimaryPhoto}, ve.Messages)
}

func (s *VerificationServiceTestSuite) TestDoubleSubmitConflicts() {
	s.makeSubmittable()

	_, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)

	_, err = s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().ErrorIs(err, store.ErrConflict)

	requests, err := s.store.ListRequests(s.listing.ID)
	s.Require().NoError(err)
	s.Len(requests, 1)
}

func (s *VerificationServiceTestSuite) TestApproveClosesActiveRequest() {
	s.makeSubmittable()
	request, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.ApproveListing(s.listing.ID, s.staff.ID, "looks good"))

	listing, err := s.store.GetListing(s.listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusVerified, listing.Status)
	s.Equal(models.VisibilityPublic, listing.Visibility)
	s.NotNil(listing.VerifiedAt)

	closed, err := s.store.GetVerificationRequest(request.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestStateApproved, closed.State)
	s.NotNil(closed.DecidedAt)
	s.Equal(&s.staff.ID, closed.ReviewerID)

	entries, err := s.store.ListAudit(models.ListingSubject(s.listing.ID))
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	actions := []string{entries[0].Action, entries[1].Action}
	s.Contains(actions, models.ActionListingSubmitted)
	s.Contains(actions, models.ActionListingApproved)
}

func (s *VerificationServiceTestSuite) TestApproveWithoutActiveRequest() {
	// Admin override: never submitted, no open request.
	s.Require().NoError(s.service.ApproveListing(s.listing.ID, s.staff.ID, ""))

	listing, err := s.store.GetListing(s.listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusVerified, listing.Status)
}

func (s *VerificationServiceTestSuite) TestApproveIsIdempotent() {
	s.Require().NoError(s.service.ApproveListing(s.listing.ID, s.staff.ID, ""))
	s.Require().NoError(s.service.ApproveListing(s.listing.ID, s.staff.ID, ""))

	entries, err := s.store.ListAudit(models.ListingSubject(s.listing.ID))
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *VerificationServiceTestSuite) TestRejectRequiresReason() {
	err := s.service.RejectListing(s.listing.ID, s.staff.ID, "")
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)
}

func (s *VerificationServiceTestSuite) TestRejectClosesRequestAndRecordsReason() {
	s.makeSubmittable()
	request, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.RejectListing(s.listing.ID, s.staff.ID, "blurry photos"))

	listing, err := s.store.GetListing(s.listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusRejected, listing.Status)
	s.Equal("blurry photos", listing.RejectionReason)
	s.NotNil(listing.RejectedAt)

	closed, err := s.store.GetVerificationRequest(request.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestStateRejected, closed.State)
}

func (s *VerificationServiceTestSuite) TestResubmitAfterRejection() {
	s.makeSubmittable()
	_, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.RejectListing(s.listing.ID, s.staff.ID, "needs work"))

	request, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)
	s.Equal(models.RequestStatePending, request.State)

	requests, err := s.store.ListRequests(s.listing.ID)
	s.Require().NoError(err)
	s.Len(requests, 2)
}

func (s *VerificationServiceTestSuite) TestBulkRejectSkipsTerminalAndUsesDefaultReason() {
	s.makeSubmittable()
	_, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.RejectListing(s.listing.ID, s.staff.ID, "first pass"))

	other := &models.Listing{
		OwnerProfileID: s.profile.ID,
		Title:          "Plot of land in Epe",
		PropertyType:   models.PropertyTypeLand,
		ListingType:    models.ListingTypeSale,
		Price:          9000000,
		Status:         models.ListingStatusInReview,
		Visibility:     models.VisibilityLimited,
	}
	s.Require().NoError(s.store.CreateListing(other))

	affected, err := s.service.RejectListingBulk([]uuid.UUID{s.listing.ID, other.ID}, s.staff.ID, "")
	s.Require().NoError(err)
	s.Equal(1, affected)

	rejected, err := s.store.GetListing(other.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusRejected, rejected.Status)
	s.Equal(defaultRejectionReason, rejected.RejectionReason)

	// The first listing keeps its original reason.
	first, err := s.store.GetListing(s.listing.ID)
	s.Require().NoError(err)
	s.Equal("first pass", first.RejectionReason)
}

func (s *VerificationServiceTestSuite) TestChecklistReflectsLiveState() {
	checklist, err := s.service.GetSubmissionChecklist(s.listing.ID)
	s.Require().NoError(err)
	s.True(checklist.IdentityApproved)
	s.True(checklist.ContactVerified)
	s.False(checklist.HasPhotos)
	s.False(checklist.ReadyForSubmission)
	s.Len(checklist.UnmetRequirements, 3)

	s.makeSubmittable()

	checklist, err = s.service.GetSubmissionChecklist(s.listing.ID)
	s.Require().NoError(err)
	s.True(checklist.ReadyForSubmission)
	s.Empty(checklist.UnmetRequirements)
}

func (s *VerificationServiceTestSuite) TestReviewQueueFilters() {
	s.makeSubmittable()
	_, err := s.service.SubmitForReview(s.listing.ID, s.owner.ID)
	s.Require().NoError(err)

	draft := &models.Listing{
		OwnerProfileID: s.profile.ID,
		Title:          "Shortlet studio in Abuja",
		PropertyType:   models.PropertyTypeApartment,
		ListingType:    models.ListingTypeShortlet,
		City:           "Abuja",
		Price:          60000,
		Status:         models.ListingStatusDraft,
		Visibility:     models.VisibilityPrivate,
	}
	s.Require().NoError(s.store.CreateListing(draft))

	// Default view shows only listings awaiting a verdict.
	listings, counts, err := s.service.ReviewQueue(QueueFilter{})
	s.Require().NoError(err)
	s.Require().Len(listings, 1)
	s.Equal(s.listing.ID, listings[0].ID)
	s.Equal(int64(1), counts[models.ListingStatusInReview])
	s.Equal(int64(1), counts[models.ListingStatusDraft])

	listings, _, err = s.service.ReviewQueue(QueueFilter{All: true})
	s.Require().NoError(err)
	s.Len(listings, 2)

	listings, _, err = s.service.ReviewQueue(QueueFilter{Status: models.ListingStatusDraft})
	s.Require().NoError(err)
	s.Require().Len(listings, 1)
	s.Equal(draft.ID, listings[0].ID)

	listings, _, err = s.service.ReviewQueue(QueueFilter{All: true, City: "abuja"})
	s.Require().NoError(err)
	s.Require().Len(listings, 1)
	s.Equal(draft.ID, listings[0].ID)
}

func TestVerificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceTestSuite))
}
