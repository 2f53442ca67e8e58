// internal/models/audit.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action taxonomy. The <entity>.<event> strings are a persisted
// contract consumed by downstream analytics and must not be renamed.
const (
	ActionListingSubmitted = "listing.submitted_for_review"
	ActionListingApproved  = "listing.approved"
	ActionListingRejected  = "listing.rejected"
	ActionListingArchived  = "listing.archived"

	ActionDocumentApproved = "document.approved"
	ActionDocumentRejected = "document.rejected"

	ActionProfileApproved = "owner_profile.approved"
	ActionProfileRejected = "owner_profile.rejected"

	ActionEmailVerificationRequested = "email.verification_requested"
	ActionEmailVerified              = "email.verified"
	ActionEmailVerifiedByAdmin       = "email.verified_by_admin"
	ActionPhoneOTPRequested          = "phone.otp_requested"
	ActionPhoneVerified              = "phone.verified"
	ActionPhoneVerifiedByAdmin       = "phone.verified_by_admin"
)

// Audit subject kinds. Closed set: construct subjects only through
// ListingSubject, OwnerProfileSubject and DocumentSubject so that the
// subject_type column never holds a stray tag.
const (
	SubjectTypeListing      = "listing"
	SubjectTypeOwnerProfile = "owner_profile"
	SubjectTypeDocument     = "listing_document"
)

// AuditSubject is the typed subject reference of an audit entry.
type AuditSubject struct {
	Type string
	ID   uuid.UUID
}

func ListingSubject(id uuid.UUID) AuditSubject {
	return AuditSubject{Type: SubjectTypeListing, ID: id}
}

func OwnerProfileSubject(id uuid.UUID) AuditSubject {
	return AuditSubject{Type: SubjectTypeOwnerProfile, ID: id}
}

func DocumentSubject(id uuid.UUID) AuditSubject {
	return AuditSubject{Type: SubjectTypeDocument, ID: id}
}

// AuditEntry is the append-only trace of every state-changing action.
// ActorID is nil for system-initiated actions. Entries are never updated
// or deleted.
type AuditEntry struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SubjectType string     `json:"subject_type" gorm:"size:50;not null;index:idx_audit_subject"`
	SubjectID   uuid.UUID  `json:"subject_id" gorm:"type:uuid;not null;index:idx_audit_subject"`
	ActorID     *uuid.UUID `json:"actor_id" gorm:"type:uuid"`
	Action      string     `json:"action" gorm:"size:100;not null;index"`
	Payload     JSONB      `json:"payload" gorm:"type:jsonb"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
}

// Subject returns the typed subject reference of the entry.
func (e *AuditEntry) Subject() AuditSubject {
	return AuditSubject{Type: e.SubjectType, ID: e.SubjectID}
}
