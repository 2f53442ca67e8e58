// internal/services/document_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
)

type DocumentServiceTestSuite struct {
	suite.Suite
	store   *store.Memory
	service *DocumentService

	staff    *models.User
	document *models.ListingDocument
}

func (s *DocumentServiceTestSuite) SetupTest() {
	s.store = store.NewMemory()
	s.service = NewDocumentService(s.store, &stubNotifier{})

	owner := &models.User{Username: "chidi", Email: "chidi@example.com", Role: models.UserRoleOwner}
	s.Require().NoError(owner.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(owner))

	s.staff = &models.User{Username: "reviewer", Email: "staff@example.com", Role: models.UserRoleStaff}
	s.Require().NoError(s.staff.SetPassword("Secret123!"))
	s.Require().NoError(s.store.CreateUser(s.staff))

	profile := &models.OwnerProfile{UserID: owner.ID, IdentityStatus: models.IdentityStatusApproved}
	s.Require().NoError(s.store.CreateOwnerProfile(profile))

	listing := &models.Listing{
		OwnerProfileID: profile.ID,
		Title:          "Duplex in Lekki",
		PropertyType:   models.PropertyTypeDuplex,
		ListingType:    models.ListingTypeSale,
		Price:          120000000,
		Status:         models.ListingStatusInReview,
		Visibility:     models.VisibilityLimited,
	}
	s.Require().NoError(s.store.CreateListing(listing))

	s.document = &models.ListingDocument{
		ListingID:  listing.ID,
		DocType:    models.DocumentTypeDeed,
		StorageKey: "listing_documents/deed.pdf",
		Status:     models.DocumentStatusUploaded,
	}
	s.Require().NoError(s.store.CreateDocument(s.document))
}

func (s *DocumentServiceTestSuite) newDocument(status models.DocumentStatus) *models.ListingDocument {
	doc := &models.ListingDocument{
		ListingID:  s.document.ListingID,
		DocType:    models.DocumentTypeCOfO,
		StorageKey: "listing_documents/cofo.pdf",
		Status:     status,
	}
	s.Require().NoError(s.store.CreateDocument(doc))
	return doc
}

func (s *DocumentServiceTestSuite) TestApproveUsesDefaultComment() {
	s.Require().NoError(s.service.Approve(s.document.ID, s.staff.ID, "  "))

	doc, err := s.store.GetDocument(s.document.ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusApproved, doc.Status)
	s.Equal(defaultApprovalComment, doc.ReviewerComment)
	s.Equal(&s.staff.ID, doc.ReviewerID)
	s.NotNil(doc.ReviewedAt)

	entries, err := s.store.ListAudit(models.DocumentSubject(doc.ID))
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionDocumentApproved, entries[0].Action)
}

func (s *DocumentServiceTestSuite) TestReapprovalWritesNoAudit() {
	s.Require().NoError(s.service.Approve(s.document.ID, s.staff.ID, "fine"))
	s.Require().NoError(s.service.Approve(s.document.ID, s.staff.ID, "fine again"))

	entries, err := s.store.ListAudit(models.DocumentSubject(s.document.ID))
	s.Require().NoError(err)
	s.Len(entries, 1)

	// The original comment survives the no-op.
	doc, err := s.store.GetDocument(s.document.ID)
	s.Require().NoError(err)
	s.Equal("fine", doc.ReviewerComment)
}

func (s *DocumentServiceTestSuite) TestRejectRequiresComment() {
	err := s.service.Reject(s.document.ID, s.staff.ID, "   ")
	s.Require().Error(err)
	_, ok := AsValidationErrors(err)
	s.True(ok)

	doc, err := s.store.GetDocument(s.document.ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusUploaded, doc.Status)
}

func (s *DocumentServiceTestSuite) TestRejectMovesToNeedsResubmission() {
	s.Require().NoError(s.service.Reject(s.document.ID, s.staff.ID, "deed is missing the signature page"))

	doc, err := s.store.GetDocument(s.document.ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusNeedsResubmission, doc.Status)
	s.Equal("deed is missing the signature page", doc.ReviewerComment)

	entries, err := s.store.ListAudit(models.DocumentSubject(doc.ID))
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ActionDocumentRejected, entries[0].Action)
	s.Equal("deed is missing the signature page", entries[0].Payload["comment"])
}

func (s *DocumentServiceTestSuite) TestApproveManySkipsTerminal() {
	approved := s.newDocument(models.DocumentStatusApproved)

	affected, err := s.service.ApproveMany(
		[]uuid.UUID{s.document.ID, approved.ID, uuid.New()},
		s.staff.ID, "")
	s.Require().NoError(err)
	s.Equal(1, affected)
}

func (s *DocumentServiceTestSuite) TestRejectManyRequiresComment() {
	affected, err := s.service.RejectMany([]uuid.UUID{s.document.ID}, s.staff.ID, "")
	s.Require().Error(err)
	s.Equal(0, affected)

	doc, err := s.store.GetDocument(s.document.ID)
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusUploaded, doc.Status)
}

func (s *DocumentServiceTestSuite) TestRejectManyCountsTransitions() {
	other := s.newDocument(models.DocumentStatusNeedsResubmission)

	affected, err := s.service.RejectMany(
		[]uuid.UUID{s.document.ID, other.ID},
		s.staff.ID, "please re-upload a clearer scan")
	s.Require().NoError(err)
	s.Equal(1, affected)
}

func TestDocumentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceTestSuite))
}
