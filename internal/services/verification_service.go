// internal/services/verification_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
)

// defaultRejectionReason is used on administrative bulk paths where staff
// did not write one. Interactive rejection always requires a reason.
const defaultRejectionReason = "Rejected by staff"

// VerificationService orchestrates the listing review lifecycle: the
// submission gate, the staff verdicts, and the verification requests that
// tie each submission to its decision.
type VerificationService struct {
	store    store.Store
	notifier Notifier
}

// SubmissionChecklist is the read-only projection owners see before
// submitting. Each field mirrors one submission precondition.
type SubmissionChecklist struct {
	IdentityApproved   bool     `json:"identity_approved"`
	ContactVerified    bool     `json:"contact_verified"`
	HasPhotos          bool     `json:"has_photos"`
	HasPrimaryPhoto    bool     `json:"has_primary_photo"`
	HasDocuments       bool     `json:"has_documents"`
	ReadyForSubmission bool     `json:"ready_for_submission"`
	UnmetRequirements  []string `json:"unmet_requirements"`
}

func NewVerificationService(st store.Store, notifier Notifier) *VerificationService {
	return &VerificationService{store: st, notifier: notifier}
}

// checklistFor computes the five submission preconditions against live
// state, in the order owners see them.
func checklistFor(st store.Store, listing *models.Listing, profile *models.OwnerProfile) (*SubmissionChecklist, error) {
	photos, err := st.ListPhotos(listing.ID)
	if err != nil {
		return nil, err
	}
	documents, err := st.ListDocuments(listing.ID)
	if err != nil {
		return nil, err
	}

	hasPrimary := false
	for _, p := range photos {
		if p.IsPrimary {
			hasPrimary = true
			break
		}
	}

	cl := &SubmissionChecklist{
		IdentityApproved: profile.IdentityStatus == models.IdentityStatusApproved,
		ContactVerified:  profile.HasVerifiedContact(),
		HasPhotos:        len(photos) > 0,
		HasPrimaryPhoto:  hasPrimary,
		HasDocuments:     len(documents) > 0,
	}

	if !cl.IdentityApproved {
		cl.UnmetRequirements = append(cl.UnmetRequirements, MsgIdentityNotVerified)
	}
	if !cl.ContactVerified {
		cl.UnmetRequirements = append(cl.UnmetRequirements, MsgNoVerifiedContact)
	}
	if !cl.HasPhotos {
		cl.UnmetRequirements = append(cl.UnmetRequirements, MsgNoPhotos)
	}
	if !cl.HasPrimaryPhoto {
		cl.UnmetRequirements = append(cl.UnmetRequirements, MsgNoPrimaryPhoto)
	}
	if !cl.HasDocuments {
		cl.UnmetRequirements = append(cl.UnmetRequirements, MsgNoDocuments)
	}
	cl.ReadyForSubmission = len(cl.UnmetRequirements) == 0

	return cl, nil
}

// GetSubmissionChecklist reports the live submission readiness of a
// listing without mutating anything.
func (s *VerificationService) GetSubmissionChecklist(listingID uuid.UUID) (*SubmissionChecklist, error) {
	listing, err := s.store.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetOwnerProfile(listing.OwnerProfileID)
	if err != nil {
		return nil, err
	}
	return checklistFor(s.store, listing, profile)
}

// SubmitForReview runs the submission gate and, if every precondition
// holds, opens a verification request and moves the listing into review.
// Validation is all-or-nothing: any unmet precondition returns the full
// list of violations and leaves every record untouched.
func (s *VerificationService) SubmitForReview(listingID, actingUserID uuid.UUID) (*models.VerificationRequest, error) {
	var (
		request    *models.VerificationRequest
		listing    *models.Listing
		ownerEmail string
	)

	err := s.store.Atomic(func(tx store.Store) error {
		l, err := tx.GetListing(listingID)
		if err != nil {
			return err
		}
		profile, err := tx.GetOwnerProfile(l.OwnerProfileID)
		if err != nil {
			return err
		}

		cl, err := checklistFor(tx, l, profile)
		if err != nil {
			return err
		}
		if !cl.ReadyForSubmission {
			return &ValidationErrors{Messages: cl.UnmetRequirements}
		}

		// Open the request before touching the listing: the partial unique
		// index on open requests turns a concurrent double-submit into a
		// conflict here, before any listing mutation.
		req := &models.VerificationRequest{
			ListingID:     l.ID,
			RequestedByID: actingUserID,
			State:         models.RequestStatePending,
		}
		if err := tx.CreateVerificationRequest(req); err != nil {
			return err
		}

		newStatus := models.ListingStatusPendingDocuments
		if profile.IdentityStatus == models.IdentityStatusApproved && cl.HasDocuments {
			newStatus = models.ListingStatusInReview
		}

		now := time.Now()
		l.Status = newStatus
		l.SubmittedAt = &now
		l.Visibility = models.VisibilityLimited
		if err := tx.SaveListing(l); err != nil {
			return err
		}

		if err := RecordIn(tx, models.ListingSubject(l.ID), &actingUserID, models.ActionListingSubmitted, models.JSONB{
			"status":     string(newStatus),
			"request_id": req.ID.String(),
		}); err != nil {
			return err
		}

		request = req
		listing = l
		ownerEmail = profile.User.Email
		return nil
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.notifier.NotifyListingSubmitted(listing, ownerEmail); err != nil {
			logrus.WithError(err).WithField("listing_id", listing.ID).Error("Failed to send submission notification")
		}
	}()

	return request, nil
}

// ApproveListing publishes a listing. The active verification request is
// closed when one exists; a direct admin approval without a request is
// fine and simply skips that step. Re-approving a verified listing is a
// no-op.
func (s *VerificationService) ApproveListing(listingID, reviewerID uuid.UUID, notes string) error {
	var (
		listing    *models.Listing
		ownerEmail string
	)

	err := s.store.Atomic(func(tx store.Store) error {
		l, err := tx.GetListing(listingID)
		if err != nil {
			return err
		}
		if l.Status == models.ListingStatusVerified {
			return nil
		}

		now := time.Now()
		l.Status = models.ListingStatusVerified
		l.Visibility = models.VisibilityPublic
		l.VerifiedAt = &now
		if err := tx.SaveListing(l); err != nil {
			return err
		}

		if err := s.closeActiveRequest(tx, l.ID, models.RequestStateApproved, reviewerID, notes, now); err != nil {
			return err
		}

		if err := RecordIn(tx, models.ListingSubject(l.ID), &reviewerID, models.ActionListingApproved, models.JSONB{
			"notes": notes,
		}); err != nil {
			return err
		}

		listing = l
		ownerEmail = l.OwnerProfile.User.Email
		return nil
	})
	if err != nil {
		return err
	}

	if listing != nil {
		go func() {
			if err := s.notifier.NotifyListingApproved(listing, ownerEmail); err != nil {
				logrus.WithError(err).WithField("listing_id", listing.ID).Error("Failed to send approval notification")
			}
		}()
	}
	return nil
}

// RejectListing sends a listing back to its owner with a mandatory reason.
// Re-rejecting a rejected listing is a no-op.
func (s *VerificationService) RejectListing(listingID, reviewerID uuid.UUID, reason string) error {
	if reason == "" {
		return NewValidationError("A reason is required when rejecting a listing")
	}

	var (
		listing    *models.Listing
		ownerEmail string
	)

	err := s.store.Atomic(func(tx store.Store) error {
		l, err := tx.GetListing(listingID)
		if err != nil {
			return err
		}
		if l.Status == models.ListingStatusRejected {
			return nil
		}

		now := time.Now()
		l.Status = models.ListingStatusRejected
		l.RejectedAt = &now
		l.RejectionReason = reason
		if err := tx.SaveListing(l); err != nil {
			return err
		}

		if err := s.closeActiveRequest(tx, l.ID, models.RequestStateRejected, reviewerID, reason, now); err != nil {
			return err
		}

		if err := RecordIn(tx, models.ListingSubject(l.ID), &reviewerID, models.ActionListingRejected, models.JSONB{
			"reason": reason,
		}); err != nil {
			return err
		}

		listing = l
		ownerEmail = l.OwnerProfile.User.Email
		return nil
	})
	if err != nil {
		return err
	}

	if listing != nil {
		go func() {
			if err := s.notifier.NotifyListingRejected(listing, ownerEmail, reason); err != nil {
				logrus.WithError(err).WithField("listing_id", listing.ID).Error("Failed to send rejection notification")
			}
		}()
	}
	return nil
}

// ApproveListingBulk approves a set of listings and returns the number
// transitioned. Already-verified listings are skipped.
func (s *VerificationService) ApproveListingBulk(listingIDs []uuid.UUID, reviewerID uuid.UUID, notes string) (int, error) {
	affected := 0
	for _, id := range listingIDs {
		listing, err := s.store.GetListing(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return affected, err
		}
		if listing.Status == models.ListingStatusVerified {
			continue
		}
		if err := s.ApproveListing(id, reviewerID, notes); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// RejectListingBulk rejects a set of listings, falling back to a standard
// reason when none is supplied.
func (s *VerificationService) RejectListingBulk(listingIDs []uuid.UUID, reviewerID uuid.UUID, reason string) (int, error) {
	if reason == "" {
		reason = defaultRejectionReason
	}

	affected := 0
	for _, id := range listingIDs {
		listing, err := s.store.GetListing(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return affected, err
		}
		if listing.Status == models.ListingStatusRejected {
			continue
		}
		if err := s.RejectListing(id, reviewerID, reason); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// closeActiveRequest decides the open request for a listing, if one
// exists. Absence is not an error: admin overrides approve listings that
// were never submitted.
func (s *VerificationService) closeActiveRequest(tx store.Store, listingID uuid.UUID, verdict models.VerificationRequestState, reviewerID uuid.UUID, notes string, decidedAt time.Time) error {
	req, err := tx.FindActiveRequest(listingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	req.State = verdict
	req.ReviewerID = &reviewerID
	req.Notes = notes
	req.DecidedAt = &decidedAt
	return tx.SaveVerificationRequest(req)
}

// ListRequests returns the full submission history of a listing, newest
// first.
func (s *VerificationService) ListRequests(listingID uuid.UUID) ([]models.VerificationRequest, error) {
	return s.store.ListRequests(listingID)
}

// QueueFilter narrows the staff review queue. The zero value shows the
// listings awaiting a verdict; All widens it to every status.
type QueueFilter struct {
	All    bool
	Status models.ListingStatus
	City   string
	Search string
}

// ReviewQueue returns listings awaiting a staff verdict together with the
// per-status counts the staff dashboard shows.
func (s *VerificationService) ReviewQueue(f QueueFilter) ([]models.Listing, map[models.ListingStatus]int64, error) {
	filter := store.ListingFilter{City: f.City, Search: f.Search}
	switch {
	case f.Status != "":
		filter.Statuses = []models.ListingStatus{f.Status}
	case !f.All:
		filter.Statuses = []models.ListingStatus{models.ListingStatusInReview, models.ListingStatusPendingDocuments}
	}

	listings, err := s.store.ListListings(filter)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.store.CountListingsByStatus()
	if err != nil {
		return nil, nil, err
	}
	return listings, counts, nil
}
