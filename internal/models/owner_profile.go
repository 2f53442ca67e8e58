// internal/models/owner_profile.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// OwnerProfile carries the KYC state for a single owner. Exactly one profile
// exists per owner account; it is created together with the User at
// registration time and never deleted.
type OwnerProfile struct {
	BaseModel
	UserID           uuid.UUID        `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	PhoneNumber      string           `json:"phone_number" gorm:"size:20"`
	WhatsAppNumber   string           `json:"whatsapp_number" gorm:"size:20"`
	PreferredContact PreferredContact `json:"preferred_contact" gorm:"type:varchar(20);default:'email'"`

	// ID verification
	IDType        IDType     `json:"id_type" gorm:"type:varchar(20)"`
	IDNumber      string     `json:"id_number" gorm:"size:100;index"`
	IDDocumentKey string     `json:"id_document_key" gorm:"size:255"`
	IDExpiryDate  *time.Time `json:"id_expiry_date"`

	// Verification status
	EmailVerifiedAt    *time.Time     `json:"email_verified_at"`
	PhoneVerifiedAt    *time.Time     `json:"phone_verified_at"`
	IdentityStatus     IdentityStatus `json:"identity_status" gorm:"type:varchar(20);default:'incomplete';index"`
	IdentityReviewerID *uuid.UUID     `json:"identity_reviewer_id" gorm:"type:uuid"`
	IdentityReviewedAt *time.Time     `json:"identity_reviewed_at"`
	IdentityNotes      string         `json:"identity_notes" gorm:"type:text"`

	// Relationships
	User     User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Listings []Listing `json:"listings,omitempty" gorm:"foreignKey:OwnerProfileID"`
}

// HasVerifiedContact reports whether at least one contact method is verified.
func (p *OwnerProfile) HasVerifiedContact() bool {
	return p.EmailVerifiedAt != nil || p.PhoneVerifiedAt != nil
}

// HasCompleteIdentitySubmission reports whether all three pieces of ID
// information an owner must supply are present.
func (p *OwnerProfile) HasCompleteIdentitySubmission() bool {
	return p.IDType != "" && p.IDNumber != "" && p.IDDocumentKey != ""
}
