// internal/services/document_service.go
package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
)

// defaultApprovalComment is stored when staff approve without writing one.
const defaultApprovalComment = "Approved by staff"

// DocumentService reviews uploaded property documents.
type DocumentService struct {
	store    store.Store
	notifier Notifier
}

func NewDocumentService(st store.Store, notifier Notifier) *DocumentService {
	return &DocumentService{store: st, notifier: notifier}
}

// Approve moves a document to approved. Re-approving an approved document
// changes nothing and writes no audit entry.
func (s *DocumentService) Approve(documentID, reviewerID uuid.UUID, comment string) error {
	if strings.TrimSpace(comment) == "" {
		comment = defaultApprovalComment
	}

	return s.store.Atomic(func(tx store.Store) error {
		doc, err := tx.GetDocument(documentID)
		if err != nil {
			return err
		}
		if doc.Status == models.DocumentStatusApproved {
			return nil
		}

		now := time.Now()
		doc.Status = models.DocumentStatusApproved
		doc.ReviewerID = &reviewerID
		doc.ReviewerComment = comment
		doc.ReviewedAt = &now
		if err := tx.SaveDocument(doc); err != nil {
			return err
		}

		return RecordIn(tx, models.DocumentSubject(doc.ID), &reviewerID, models.ActionDocumentApproved, models.JSONB{
			"comment": comment,
		})
	})
}

// Reject moves a document to needs_resubmission. A reviewer comment is
// mandatory so the owner knows what to fix; this holds for bulk rejection
// too.
func (s *DocumentService) Reject(documentID, reviewerID uuid.UUID, comment string) error {
	if strings.TrimSpace(comment) == "" {
		return NewValidationError("A comment is required when rejecting a document")
	}

	var rejected *models.ListingDocument
	err := s.store.Atomic(func(tx store.Store) error {
		doc, err := tx.GetDocument(documentID)
		if err != nil {
			return err
		}
		if doc.Status == models.DocumentStatusNeedsResubmission {
			return nil
		}

		now := time.Now()
		doc.Status = models.DocumentStatusNeedsResubmission
		doc.ReviewerID = &reviewerID
		doc.ReviewerComment = comment
		doc.ReviewedAt = &now
		if err := tx.SaveDocument(doc); err != nil {
			return err
		}

		if err := RecordIn(tx, models.DocumentSubject(doc.ID), &reviewerID, models.ActionDocumentRejected, models.JSONB{
			"comment": comment,
		}); err != nil {
			return err
		}
		rejected = doc
		return nil
	})
	if err != nil {
		return err
	}

	if rejected != nil {
		go s.sendRejectionNotification(rejected, comment)
	}
	return nil
}

// ApproveMany applies Approve to each id and returns the number of
// documents actually transitioned. Already-approved documents are skipped.
func (s *DocumentService) ApproveMany(documentIDs []uuid.UUID, reviewerID uuid.UUID, comment string) (int, error) {
	affected := 0
	for _, id := range documentIDs {
		doc, err := s.store.GetDocument(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return affected, err
		}
		if doc.Status == models.DocumentStatusApproved {
			continue
		}
		if err := s.Approve(id, reviewerID, comment); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// RejectMany applies Reject to each id with the same comment-required rule
// as the single form and returns the number transitioned.
func (s *DocumentService) RejectMany(documentIDs []uuid.UUID, reviewerID uuid.UUID, comment string) (int, error) {
	if strings.TrimSpace(comment) == "" {
		return 0, NewValidationError("A comment is required when rejecting a document")
	}

	affected := 0
	for _, id := range documentIDs {
		doc, err := s.store.GetDocument(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return affected, err
		}
		if doc.Status == models.DocumentStatusNeedsResubmission {
			continue
		}
		if err := s.Reject(id, reviewerID, comment); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (s *DocumentService) sendRejectionNotification(doc *models.ListingDocument, comment string) {
	listing, err := s.store.GetListing(doc.ListingID)
	if err != nil {
		logrus.WithError(err).WithField("document_id", doc.ID).Error("Failed to load listing for document rejection notification")
		return
	}
	if err := s.notifier.NotifyDocumentRejected(doc, listing.OwnerProfile.User.Email, comment); err != nil {
		logrus.WithError(err).WithField("document_id", doc.ID).Error("Failed to send document rejection notification")
	}
}
