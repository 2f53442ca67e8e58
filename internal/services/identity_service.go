// internal/services/identity_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heimly/heimly-backend/internal/cache"
	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

const (
	emailTokenTTL  = 24 * time.Hour
	phoneOTPTTL    = 10 * time.Minute
	emailTokenKey  = "email_verify_%s"
	phoneOTPKeyFmt = "phone_otp_%s"
)

// IdentityService drives the owner KYC state machine: ID submission,
// staff review, and contact verification.
type IdentityService struct {
	store    store.Store
	tokens   cache.TokenCache
	notifier Notifier
}

type IdentitySubmission struct {
	PhoneNumber      string                  `json:"phone_number,omitempty"`
	WhatsAppNumber   string                  `json:"whatsapp_number,omitempty"`
	PreferredContact models.PreferredContact `json:"preferred_contact,omitempty"`
	IDType           models.IDType           `json:"id_type,omitempty"`
	IDNumber         string                  `json:"id_number,omitempty"`
	IDDocumentKey    string                  `json:"id_document_key,omitempty"`
	IDExpiryDate     *time.Time              `json:"id_expiry_date,omitempty"`
}

func NewIdentityService(st store.Store, tokens cache.TokenCache, notifier Notifier) *IdentityService {
	return &IdentityService{
		store:    st,
		tokens:   tokens,
		notifier: notifier,
	}
}

// RecordIdentitySubmission updates the profile's KYC fields and moves
// identity status between incomplete and pending_review. A submission with
// all three ID pieces present goes to pending_review; removing a piece
// while pending_review withdraws the submission back to incomplete.
// Changing any ID field on an approved profile re-enters pending_review;
// only contact-field updates leave an approval standing.
func (s *IdentityService) RecordIdentitySubmission(profileID uuid.UUID, sub *IdentitySubmission) (*models.OwnerProfile, error) {
	var updated *models.OwnerProfile
	err := s.store.Atomic(func(tx store.Store) error {
		profile, err := tx.GetOwnerProfile(profileID)
		if err != nil {
			return err
		}

		if sub.PhoneNumber != "" {
			profile.PhoneNumber = sub.PhoneNumber
		}
		if sub.WhatsAppNumber != "" {
			profile.WhatsAppNumber = sub.WhatsAppNumber
		}
		if sub.PreferredContact != "" {
			profile.PreferredContact = sub.PreferredContact
		}
		idChanged := false
		if sub.IDType != "" && sub.IDType != profile.IDType {
			profile.IDType = sub.IDType
			idChanged = true
		}
		if sub.IDNumber != "" && sub.IDNumber != profile.IDNumber {
			profile.IDNumber = sub.IDNumber
			idChanged = true
		}
		if sub.IDDocumentKey != "" && sub.IDDocumentKey != profile.IDDocumentKey {
			profile.IDDocumentKey = sub.IDDocumentKey
			idChanged = true
		}
		if sub.IDExpiryDate != nil {
			if profile.IDExpiryDate == nil || !profile.IDExpiryDate.Equal(*sub.IDExpiryDate) {
				idChanged = true
			}
			profile.IDExpiryDate = sub.IDExpiryDate
		}

		switch {
		case profile.HasCompleteIdentitySubmission() && (idChanged || profile.IdentityStatus != models.IdentityStatusApproved):
			profile.IdentityStatus = models.IdentityStatusPendingReview
		case !profile.HasCompleteIdentitySubmission() && profile.IdentityStatus == models.IdentityStatusPendingReview:
			profile.IdentityStatus = models.IdentityStatusIncomplete
		}

		if err := tx.SaveOwnerProfile(profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApproveIdentity marks the profile's identity as staff-approved. Safe to
// call on an already-approved profile; the guard keeps the audit log free
// of duplicate entries.
func (s *IdentityService) ApproveIdentity(profileID, reviewerID uuid.UUID, notes string) error {
	var ownerEmail string
	var profile *models.OwnerProfile

	err := s.store.Atomic(func(tx store.Store) error {
		p, err := tx.GetOwnerProfile(profileID)
		if err != nil {
			return err
		}
		alreadyApproved := p.IdentityStatus == models.IdentityStatusApproved

		now := time.Now()
		p.IdentityStatus = models.IdentityStatusApproved
		p.IdentityReviewerID = &reviewerID
		p.IdentityReviewedAt = &now
		if notes != "" {
			p.IdentityNotes = notes
		}
		if err := tx.SaveOwnerProfile(p); err != nil {
			return err
		}

		if !alreadyApproved {
			if err := RecordIn(tx, models.OwnerProfileSubject(p.ID), &reviewerID, models.ActionProfileApproved, models.JSONB{
				"notes": notes,
			}); err != nil {
				return err
			}
			ownerEmail = p.User.Email
			profile = p
		}
		return nil
	})
	if err != nil {
		return err
	}

	if profile != nil {
		go s.sendIdentityApprovedNotification(profile, ownerEmail)
	}
	return nil
}

// RejectIdentity marks the profile's identity as rejected, guarded the
// same way as approval.
func (s *IdentityService) RejectIdentity(profileID, reviewerID uuid.UUID, notes string) error {
	var ownerEmail string
	var profile *models.OwnerProfile

	err := s.store.Atomic(func(tx store.Store) error {
		p, err := tx.GetOwnerProfile(profileID)
		if err != nil {
			return err
		}
		alreadyRejected := p.IdentityStatus == models.IdentityStatusRejected

		now := time.Now()
		p.IdentityStatus = models.IdentityStatusRejected
		p.IdentityReviewerID = &reviewerID
		p.IdentityReviewedAt = &now
		if notes != "" {
			p.IdentityNotes = notes
		}
		if err := tx.SaveOwnerProfile(p); err != nil {
			return err
		}

		if !alreadyRejected {
			if err := RecordIn(tx, models.OwnerProfileSubject(p.ID), &reviewerID, models.ActionProfileRejected, models.JSONB{
				"notes": notes,
			}); err != nil {
				return err
			}
			ownerEmail = p.User.Email
			profile = p
		}
		return nil
	})
	if err != nil {
		return err
	}

	if profile != nil {
		go s.sendIdentityRejectedNotification(profile, ownerEmail, notes)
	}
	return nil
}

// ApproveIdentityBulk applies ApproveIdentity to a set of profiles and
// returns the number actually transitioned. Already-approved profiles are
// skipped, not errors.
func (s *IdentityService) ApproveIdentityBulk(profileIDs []uuid.UUID, reviewerID uuid.UUID, notes string) (int, error) {
	affected := 0
	for _, id := range profileIDs {
		profile, err := s.store.GetOwnerProfile(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return affected, err
		}
		if profile.IdentityStatus == models.IdentityStatusApproved {
			continue
		}
		if err := s.ApproveIdentity(id, reviewerID, notes); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// RejectIdentityBulk is the symmetric bulk form of RejectIdentity.
func (s *IdentityService) RejectIdentityBulk(profileIDs []uuid.UUID, reviewerID uuid.UUID, notes string) (int, error) {
	affected := 0
	for _, id := range profileIDs {
		profile, err := s.store.GetOwnerProfile(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return affected, err
		}
		if profile.IdentityStatus == models.IdentityStatusRejected {
			continue
		}
		if err := s.RejectIdentity(id, reviewerID, notes); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// markEmailVerified sets the email-verified timestamp once. Calling it on
// an already-verified profile changes nothing and logs nothing.
func (s *IdentityService) markEmailVerified(profileID uuid.UUID, actorID *uuid.UUID, action string) error {
	return s.store.Atomic(func(tx store.Store) error {
		profile, err := tx.GetOwnerProfile(profileID)
		if err != nil {
			return err
		}
		if profile.EmailVerifiedAt != nil {
			return nil
		}

		now := time.Now()
		profile.EmailVerifiedAt = &now
		if err := tx.SaveOwnerProfile(profile); err != nil {
			return err
		}
		return RecordIn(tx, models.OwnerProfileSubject(profile.ID), actorID, action, nil)
	})
}

// markPhoneVerified is the phone counterpart; it additionally requires a
// phone number on file.
func (s *IdentityService) markPhoneVerified(profileID uuid.UUID, actorID *uuid.UUID, action string) error {
	return s.store.Atomic(func(tx store.Store) error {
		profile, err := tx.GetOwnerProfile(profileID)
		if err != nil {
			return err
		}
		if profile.PhoneNumber == "" {
			return NewValidationError("A phone number is required before phone verification")
		}
		if profile.PhoneVerifiedAt != nil {
			return nil
		}

		now := time.Now()
		profile.PhoneVerifiedAt = &now
		if err := tx.SaveOwnerProfile(profile); err != nil {
			return err
		}
		return RecordIn(tx, models.OwnerProfileSubject(profile.ID), actorID, action, nil)
	})
}

// VerifyEmailByAdmin lets staff mark an email verified without a token.
func (s *IdentityService) VerifyEmailByAdmin(profileID, staffID uuid.UUID) error {
	return s.markEmailVerified(profileID, &staffID, models.ActionEmailVerifiedByAdmin)
}

// VerifyPhoneByAdmin lets staff mark a phone verified without an OTP.
func (s *IdentityService) VerifyPhoneByAdmin(profileID, staffID uuid.UUID) error {
	return s.markPhoneVerified(profileID, &staffID, models.ActionPhoneVerifiedByAdmin)
}

// RequestEmailVerification issues a 24-hour single-use token and emails a
// verification link to the owner.
func (s *IdentityService) RequestEmailVerification(ctx context.Context, profileID uuid.UUID) error {
	profile, err := s.store.GetOwnerProfile(profileID)
	if err != nil {
		return err
	}
	if profile.EmailVerifiedAt != nil {
		return nil
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	key := fmt.Sprintf(emailTokenKey, token)
	if err := s.tokens.Put(ctx, key, profile.ID.String(), emailTokenTTL); err != nil {
		return err
	}

	userID := profile.UserID
	if err := s.store.Atomic(func(tx store.Store) error {
		return RecordIn(tx, models.OwnerProfileSubject(profile.ID), &userID, models.ActionEmailVerificationRequested, nil)
	}); err != nil {
		return err
	}

	email := profile.User.Email
	go func() {
		if err := s.notifier.SendVerificationEmail(email, token); err != nil {
			logrus.WithError(err).WithField("profile_id", profile.ID).Error("Failed to send verification email")
		}
	}()
	return nil
}

// ConfirmEmailVerification consumes a token from the verification link and
// marks the owning profile's email verified.
func (s *IdentityService) ConfirmEmailVerification(ctx context.Context, token string) error {
	key := fmt.Sprintf(emailTokenKey, token)
	value, err := s.tokens.Consume(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return NewValidationError("Verification link is invalid or has expired")
		}
		return err
	}

	profileID, err := uuid.Parse(value)
	if err != nil {
		return NewValidationError("Verification link is invalid or has expired")
	}

	return s.markEmailVerified(profileID, nil, models.ActionEmailVerified)
}

// RequestPhoneOTP issues a 10-minute single-use 6-digit code to the
// profile's phone number.
func (s *IdentityService) RequestPhoneOTP(ctx context.Context, profileID uuid.UUID) error {
	profile, err := s.store.GetOwnerProfile(profileID)
	if err != nil {
		return err
	}
	if profile.PhoneNumber == "" {
		return NewValidationError("A phone number is required before phone verification")
	}
	if profile.PhoneVerifiedAt != nil {
		return nil
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate OTP: %w", err)
	}

	key := fmt.Sprintf(phoneOTPKeyFmt, profile.ID)
	if err := s.tokens.Put(ctx, key, code, phoneOTPTTL); err != nil {
		return err
	}

	userID := profile.UserID
	if err := s.store.Atomic(func(tx store.Store) error {
		return RecordIn(tx, models.OwnerProfileSubject(profile.ID), &userID, models.ActionPhoneOTPRequested, nil)
	}); err != nil {
		return err
	}

	phone := profile.PhoneNumber
	go func() {
		if err := s.notifier.SendPhoneOTP(phone, code); err != nil {
			logrus.WithError(err).WithField("profile_id", profile.ID).Error("Failed to send phone OTP")
		}
	}()
	return nil
}

// VerifyPhoneOTP checks the submitted code and, on match, consumes it and
// marks the phone verified.
func (s *IdentityService) VerifyPhoneOTP(ctx context.Context, profileID uuid.UUID, code string) error {
	key := fmt.Sprintf(phoneOTPKeyFmt, profileID)
	stored, err := s.tokens.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return NewValidationError("Verification code is invalid or has expired")
		}
		return err
	}
	if stored != code {
		return NewValidationError("Verification code is invalid or has expired")
	}
	if err := s.tokens.Delete(ctx, key); err != nil {
		return err
	}

	return s.markPhoneVerified(profileID, nil, models.ActionPhoneVerified)
}

// GetProfileByUserID resolves the owner profile behind an authenticated
// user.
func (s *IdentityService) GetProfileByUserID(userID uuid.UUID) (*models.OwnerProfile, error) {
	return s.store.GetOwnerProfileByUserID(userID)
}

// ListPendingProfiles returns profiles awaiting staff identity review.
func (s *IdentityService) ListPendingProfiles() ([]models.OwnerProfile, error) {
	return s.store.ListOwnerProfiles([]models.IdentityStatus{models.IdentityStatusPendingReview})
}

func (s *IdentityService) sendIdentityApprovedNotification(profile *models.OwnerProfile, email string) {
	if err := s.notifier.NotifyIdentityApproved(profile, email); err != nil {
		logrus.WithError(err).WithField("profile_id", profile.ID).Error("Failed to send identity approval notification")
	}
}

func (s *IdentityService) sendIdentityRejectedNotification(profile *models.OwnerProfile, email, notes string) {
	if err := s.notifier.NotifyIdentityRejected(profile, email, notes); err != nil {
		logrus.WithError(err).WithField("profile_id", profile.ID).Error("Failed to send identity rejection notification")
	}
}
