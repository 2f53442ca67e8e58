// internal/models/verification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationRequest tracks one submission-to-decision cycle for a listing.
// A listing accumulates one request per resubmission, but at most one may be
// open (pending or under_review) at a time; the storage layer enforces that
// with a partial unique index.
type VerificationRequest struct {
	BaseModel
	ListingID     uuid.UUID                `json:"listing_id" gorm:"type:uuid;not null;index"`
	RequestedByID uuid.UUID                `json:"requested_by_id" gorm:"type:uuid;not null"`
	State         VerificationRequestState `json:"state" gorm:"type:varchar(20);default:'pending';index"`
	Notes         string                   `json:"notes" gorm:"type:text"`
	ReviewerID    *uuid.UUID               `json:"reviewer_id" gorm:"type:uuid"`
	StartedAt     time.Time                `json:"started_at" gorm:"autoCreateTime"`
	DecidedAt     *time.Time               `json:"decided_at"`

	// Relationships
	Listing Listing `json:"listing,omitempty" gorm:"foreignKey:ListingID"`
}
