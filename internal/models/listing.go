// internal/models/listing.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Listing struct {
	BaseModel
	OwnerProfileID uuid.UUID `json:"owner_profile_id" gorm:"type:uuid;not null;index"`
	Title          string    `json:"title" gorm:"size:200;not null"`
	Description    string    `json:"description" gorm:"type:text"`

	// Property details
	PropertyType PropertyType `json:"property_type" gorm:"type:varchar(20);not null"`
	ListingType  ListingType  `json:"listing_type" gorm:"type:varchar(20);not null"`

	// Location
	AddressLine string `json:"address_line" gorm:"size:300"`
	City        string `json:"city" gorm:"size:100;index"`
	State       string `json:"state" gorm:"size:100"`
	Country     string `json:"country" gorm:"size:100;default:'Nigeria'"`
	PostalCode  string `json:"postal_code" gorm:"size:20"`

	// Specifications
	Bedrooms  *int  `json:"bedrooms"`
	Bathrooms *int  `json:"bathrooms"`
	Amenities JSONB `json:"amenities" gorm:"type:jsonb"`

	// Commercial details
	Price    float64 `json:"price" gorm:"type:decimal(12,2);not null"`
	Currency string  `json:"currency" gorm:"size:3;default:'NGN'"`

	// Workflow status
	Status          ListingStatus   `json:"status" gorm:"type:varchar(20);default:'draft';index"`
	Visibility      VisibilityState `json:"visibility" gorm:"type:varchar(20);default:'private'"`
	SubmittedAt     *time.Time      `json:"submitted_at"`
	VerifiedAt      *time.Time      `json:"verified_at"`
	RejectedAt      *time.Time      `json:"rejected_at"`
	RejectionReason string          `json:"rejection_reason" gorm:"type:text"`

	// Relationships
	OwnerProfile OwnerProfile      `json:"owner_profile,omitempty" gorm:"foreignKey:OwnerProfileID"`
	Photos       []ListingPhoto    `json:"photos,omitempty" gorm:"foreignKey:ListingID"`
	Documents    []ListingDocument `json:"documents,omitempty" gorm:"foreignKey:ListingID"`
}

// CanArchive reports whether the listing may move to archived. Archiving is
// only reachable from a terminal review state.
func (l *Listing) CanArchive() bool {
	return l.Status == ListingStatusVerified || l.Status == ListingStatusRejected
}

type ListingPhoto struct {
	BaseModel
	ListingID    uuid.UUID  `json:"listing_id" gorm:"type:uuid;not null;index"`
	StorageKey   string     `json:"storage_key" gorm:"size:255;not null"`
	Caption      string     `json:"caption" gorm:"size:200"`
	IsPrimary    bool       `json:"is_primary" gorm:"default:false"`
	Position     int        `json:"position" gorm:"default:0"`
	UploadedByID *uuid.UUID `json:"uploaded_by_id" gorm:"type:uuid"`
}

type ListingDocument struct {
	BaseModel
	ListingID       uuid.UUID      `json:"listing_id" gorm:"type:uuid;not null;index"`
	DocType         DocumentType   `json:"doc_type" gorm:"type:varchar(20);not null;index"`
	StorageKey      string         `json:"storage_key" gorm:"size:255;not null"`
	Status          DocumentStatus `json:"status" gorm:"type:varchar(20);default:'uploaded';index"`
	ReviewerID      *uuid.UUID     `json:"reviewer_id" gorm:"type:uuid"`
	ReviewerComment string         `json:"reviewer_comment" gorm:"type:text"`
	UploadedAt      time.Time      `json:"uploaded_at" gorm:"autoCreateTime"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
}
